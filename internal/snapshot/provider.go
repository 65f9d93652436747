package snapshot

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/sitecfg/pkg/constants"
	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/logging"
	"github.com/agentstation/sitecfg/pkg/sites"
)

// FileProvider discovers sites from a platform description on disk.
type FileProvider struct {
	platformFile string
	installBase  string
	concurrency  int
}

// Option configures a FileProvider.
type Option func(*FileProvider)

// WithInstallBase sets the directory platform:/base/ URLs resolve against.
// It overrides install_base in the platform description.
func WithInstallBase(dir string) Option {
	return func(p *FileProvider) {
		p.installBase = dir
	}
}

// WithConcurrency bounds how many sites are scanned at once.
func WithConcurrency(n int) Option {
	return func(p *FileProvider) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewFileProvider returns a provider reading platformFile.
func NewFileProvider(platformFile string, opts ...Option) *FileProvider {
	p := &FileProvider{
		platformFile: platformFile,
		concurrency:  constants.MaxConcurrentSites,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlatformFile returns the platform description path.
func (p *FileProvider) PlatformFile() string {
	return p.platformFile
}

// resolvedSite is a declared site with its directory.
type resolvedSite struct {
	decl PlatformSite
	dir  string
}

// DiscoverSites returns one entry per declared site whose directory exists,
// in declaration order. Sites whose directory is missing are left out so
// their stored state is dropped.
func (p *FileProvider) DiscoverSites(ctx context.Context) ([]sites.SiteEntry, error) {
	logger := logging.FromContext(ctx)

	resolved, err := p.resolve()
	if err != nil {
		return nil, err
	}

	entries := make([]*sites.SiteEntry, len(resolved))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, rs := range resolved {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(rs.dir)
			if err != nil {
				if stderrors.Is(err, fs.ErrNotExist) {
					logging.FromContext(logging.WithSite(ctx, rs.decl.URL)).Warn().
						Str("dir", rs.dir).
						Msg("Site directory is missing, skipping")
					return nil
				}
				return errors.NewSnapshotError(rs.decl.URL, err)
			}
			if !info.IsDir() {
				return errors.NewSnapshotError(rs.decl.URL, errors.NewValidationError("dir", rs.dir, "not a directory"))
			}

			site, err := ScanSite(Location(rs.dir), rs.dir)
			if err != nil {
				return errors.NewSnapshotError(rs.decl.URL, err)
			}
			entries[i] = &sites.SiteEntry{
				PlatformURL: rs.decl.URL,
				Location:    site.Location,
				Updatable:   rs.decl.IsUpdatable(),
				Policy:      rs.decl.Policy,
				PluginPath:  append([]string(nil), rs.decl.Plugins...),
				Site:        site,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.NewSnapshotError("", ctxErr)
		}
		return nil, err
	}

	out := make([]sites.SiteEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			out = append(out, *e)
		}
	}

	logger.Debug().
		Int("declared", len(resolved)).
		Int("discovered", len(out)).
		Msg("Discovered platform sites")
	return out, nil
}

// WatchPaths returns the directories whose changes can alter the snapshot:
// the directory holding the platform file and each site's features and
// plugins directories that exist.
func (p *FileProvider) WatchPaths() ([]string, error) {
	resolved, err := p.resolve()
	if err != nil {
		return nil, err
	}
	paths := []string{filepath.Dir(clean(p.platformFile))}
	for _, rs := range resolved {
		for _, sub := range []string{rs.dir, filepath.Join(rs.dir, constants.FeaturesDir), filepath.Join(rs.dir, constants.PluginsDir)} {
			if info, err := os.Stat(sub); err == nil && info.IsDir() {
				paths = append(paths, sub)
			}
		}
	}
	return paths, nil
}

func (p *FileProvider) resolve() ([]resolvedSite, error) {
	platform, err := LoadPlatform(p.platformFile)
	if err != nil {
		return nil, errors.NewSnapshotError("", err)
	}

	platformDir := filepath.Dir(clean(p.platformFile))
	base := p.installBase
	if base == "" {
		base = platform.InstallBase
	}
	if base == "" {
		base = platformDir
	} else if !filepath.IsAbs(base) {
		base = filepath.Join(platformDir, base)
	}

	out := make([]resolvedSite, 0, len(platform.Sites))
	for _, decl := range platform.Sites {
		dir, err := Resolve(decl.URL, base, platformDir)
		if err != nil {
			return nil, errors.NewSnapshotError(decl.URL, err)
		}
		out = append(out, resolvedSite{decl: decl, dir: dir})
	}
	return out, nil
}

// ScanSite reads the features installed in dir. Feature directories are
// visited in name order; a directory without a manifest is ignored.
func ScanSite(location, dir string) (*sites.Site, error) {
	site := sites.NewSite(location)

	featuresDir := filepath.Join(dir, constants.FeaturesDir)
	entries, err := os.ReadDir(featuresDir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return site, nil
		}
		return nil, errors.WrapIO("read", featuresDir, err)
	}

	plugins, err := installedPlugins(filepath.Join(dir, constants.PluginsDir))
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		manifestPath := filepath.Join(featuresDir, e.Name(), constants.FeatureManifest)
		if _, err := os.Stat(manifestPath); stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		m, err := LoadFeatureManifest(manifestPath)
		if err != nil {
			return nil, err
		}

		url := constants.FeaturesDir + "/" + e.Name() + "/"
		f := sites.NewFeatureReference(m.ID, m.Version, url)
		f.Plugins = append([]string(nil), m.Plugins...)
		for _, plugin := range m.Plugins {
			if !plugins.has(plugin) {
				f.Broken = true
				break
			}
		}
		site.Features = append(site.Features, f)
	}
	return site, nil
}

// pluginSet holds the plugin directory and file names under plugins/.
type pluginSet []string

// has reports whether a plugin named id, or id_<version>, is installed.
func (s pluginSet) has(id string) bool {
	i := sort.SearchStrings(s, id)
	if i < len(s) && s[i] == id {
		return true
	}
	prefix := id + "_"
	for ; i < len(s) && strings.HasPrefix(s[i], id); i++ {
		if strings.HasPrefix(s[i], prefix) {
			return true
		}
	}
	return false
}

func installedPlugins(dir string) (pluginSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.WrapIO("read", dir, err)
	}
	names := make(pluginSet, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".jar"))
	}
	sort.Strings(names)
	return names, nil
}
