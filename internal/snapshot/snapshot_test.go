package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/sitecfg/internal/snapshot"
	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/sites"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o755))
}

// newPlatform lays out an install base with one base site and one extension site.
func newPlatform(t *testing.T) (platformFile, base, ext string) {
	t.Helper()
	root := t.TempDir()
	base = filepath.Join(root, "app")
	ext = filepath.Join(root, "ext")

	writeFile(t, filepath.Join(base, "features", "org.example.core_1.0.0", "feature.yaml"),
		"id: org.example.core\nversion: 1.0.0\nplugins: [org.example.core]\n")
	writeFile(t, filepath.Join(base, "features", "org.example.ui_2.0.0", "feature.yaml"),
		"id: org.example.ui\nversion: 2.0.0\nplugins: [org.example.ui, org.example.missing]\n")
	mkdir(t, filepath.Join(base, "features", "empty"))
	mkdir(t, filepath.Join(base, "plugins", "org.example.core_1.0.0"))
	mkdir(t, filepath.Join(base, "plugins", "org.example.ui"))

	writeFile(t, filepath.Join(ext, "features", "org.example.extra_0.9", "feature.yaml"),
		"id: org.example.extra\nversion: \"0.9\"\n")

	platformFile = filepath.Join(base, "platform.yaml")
	writeFile(t, platformFile, `
sites:
  - url: platform:/base/
    plugins: [plugins/org.example.core_1.0.0/]
  - url: file://`+filepath.ToSlash(ext)+`/
    updatable: false
    policy: user-include
  - url: file:///does/not/exist/
`)
	return platformFile, base, ext
}

func TestFileProviderDiscoverSites(t *testing.T) {
	platformFile, base, ext := newPlatform(t)

	entries, err := snapshot.NewFileProvider(platformFile).DiscoverSites(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2, "missing site directory is skipped")

	core := entries[0]
	assert.Equal(t, "platform:/base/", core.PlatformURL)
	assert.Equal(t, snapshot.Location(base), core.Location)
	assert.True(t, core.Updatable)
	assert.Equal(t, sites.PolicyUserExclude, core.Policy)
	assert.Equal(t, []string{"plugins/org.example.core_1.0.0/"}, core.PluginPath)
	require.Len(t, core.Site.Features, 2)
	assert.Equal(t, "org.example.core@1.0.0", core.Site.Features[0].ID.String())
	assert.Equal(t, "features/org.example.core_1.0.0/", core.Site.Features[0].URL)
	assert.False(t, core.Site.Features[0].Broken)
	assert.True(t, core.Site.Features[1].Broken, "required plugin is missing")

	extra := entries[1]
	assert.Equal(t, snapshot.Location(ext), extra.Location)
	assert.False(t, extra.Updatable)
	assert.Equal(t, sites.PolicyUserInclude, extra.Policy)
	require.Len(t, extra.Site.Features, 1)
	assert.Equal(t, "0.9", extra.Site.Features[0].ID.Version)
}

func TestFileProviderInstallBaseOverride(t *testing.T) {
	root := t.TempDir()
	install := filepath.Join(root, "install")
	writeFile(t, filepath.Join(install, "features", "a", "feature.yaml"), "id: a\nversion: 1.0.0\n")
	platformFile := filepath.Join(root, "platform.yaml")
	writeFile(t, platformFile, "sites:\n  - url: platform:/base/\n")

	entries, err := snapshot.NewFileProvider(platformFile, snapshot.WithInstallBase(install)).
		DiscoverSites(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, snapshot.Location(install), entries[0].Location)
	assert.Len(t, entries[0].Site.Features, 1)
}

func TestFileProviderErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing platform file", func(t *testing.T) {
		_, err := snapshot.NewFileProvider(filepath.Join(t.TempDir(), "nope.yaml")).DiscoverSites(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsSnapshotUnavailable(err))
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "platform.yaml")
		writeFile(t, path, "sites:\n  - url: https://example.com/site/\n")
		_, err := snapshot.NewFileProvider(path).DiscoverSites(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsSnapshotUnavailable(err))
	})

	t.Run("unknown policy", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "platform.yaml")
		writeFile(t, path, "sites:\n  - url: platform:/base/\n    policy: sometimes\n")
		_, err := snapshot.NewFileProvider(path).DiscoverSites(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsSnapshotUnavailable(err))
	})

	t.Run("invalid manifest", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "features", "bad", "feature.yaml"), "version: 1.0.0\n")
		path := filepath.Join(dir, "platform.yaml")
		writeFile(t, path, "sites:\n  - url: platform:/base/\n")
		_, err := snapshot.NewFileProvider(path).DiscoverSites(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsSnapshotUnavailable(err))
	})

	t.Run("canceled", func(t *testing.T) {
		platformFile, _, _ := newPlatform(t)
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := snapshot.NewFileProvider(platformFile).DiscoverSites(ctx)
		require.Error(t, err)
	})
}

func TestFileProviderWatchPaths(t *testing.T) {
	platformFile, base, ext := newPlatform(t)
	paths, err := snapshot.NewFileProvider(platformFile).WatchPaths()
	require.NoError(t, err)
	assert.Contains(t, paths, base)
	assert.Contains(t, paths, filepath.Join(base, "features"))
	assert.Contains(t, paths, filepath.Join(base, "plugins"))
	assert.Contains(t, paths, filepath.Join(ext, "features"))
	assert.NotContains(t, paths, filepath.Join(ext, "plugins"))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		base    string
		rel     string
		want    string
		wantErr bool
	}{
		{name: "platform base", raw: "platform:/base/", base: "/opt/app", want: "/opt/app"},
		{name: "platform base subdir", raw: "platform:/base/dropins/", base: "/opt/app", want: "/opt/app/dropins"},
		{name: "platform base without install base", raw: "platform:/base/", wantErr: true},
		{name: "file url", raw: "file:///opt/ext/", want: "/opt/ext"},
		{name: "file url cleaned", raw: "file:///opt/ext/../other/", want: "/opt/other"},
		{name: "relative path", raw: "ext", rel: "/etc/app", want: "/etc/app/ext"},
		{name: "absolute path", raw: "/srv/site/", want: "/srv/site"},
		{name: "remote", raw: "https://example.com/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := snapshot.Resolve(tt.raw, tt.base, tt.rel)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "file:///opt/app/", snapshot.Location("/opt/app"))
	assert.Equal(t, "file:///opt/app/", snapshot.Location("/opt/app/"))
}

func TestParsePlatformDefaults(t *testing.T) {
	p, err := snapshot.ParsePlatform([]byte("sites:\n  - url: platform:/base/\n"), "test")
	require.NoError(t, err)
	require.Len(t, p.Sites, 1)
	assert.True(t, p.Sites[0].IsUpdatable())
	assert.Equal(t, sites.DefaultPolicyMode, p.Sites[0].Policy)

	_, err = snapshot.ParsePlatform([]byte("sites:\n  - updatable: true\n"), "test")
	assert.True(t, errors.IsValidationError(err))
}

func TestStatic(t *testing.T) {
	entry := sites.SiteEntry{Location: "file:///a/", Site: sites.NewSite("file:///a/")}
	p := snapshot.NewStatic(entry)
	got, err := p.DiscoverSites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []sites.SiteEntry{entry}, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.DiscoverSites(ctx)
	assert.Error(t, err)
}
