package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/sitecfg/pkg/constants"
	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/logging"
	"github.com/agentstation/sitecfg/pkg/sites"
)

const (
	currentFile = "current.yaml"
	historyDir  = "history"
)

// FileStore keeps the current configuration in current.yaml and every saved
// configuration under history/ as <seq>_<id>.yaml. Files are written to a
// temporary name and renamed into place, so readers never see partial data.
type FileStore struct {
	dir   string
	limit int
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if dir == "" {
		return nil, errors.NewValidationError("store.path", dir, "a directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, historyDir), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", dir, err)
	}
	return &FileStore{dir: dir, limit: newOptions(opts...).historyLimit}, nil
}

// Location returns the store directory.
func (s *FileStore) Location() string {
	return s.dir
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// LoadCurrent reads current.yaml.
func (s *FileStore) LoadCurrent(_ context.Context) (*sites.Configuration, error) {
	path := filepath.Join(s.dir, currentFile)
	cfg, err := readConfiguration(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreError(errors.StoreOpRead, s.dir, err)
	}
	return cfg, nil
}

// Save writes cfg to history, then replaces current.yaml. If replacing
// current.yaml fails the history entry is removed again.
func (s *FileStore) Save(ctx context.Context, cfg *sites.Configuration) error {
	data, err := yaml.MarshalWithOptions(cfg.Record(),
		yaml.Indent(2),
		yaml.IndentSequence(false),
	)
	if err != nil {
		return errors.NewStoreError(errors.StoreOpWrite, s.dir, errors.WrapParse("yaml", currentFile, err))
	}

	names, err := s.historyNames()
	if err != nil {
		return errors.NewStoreError(errors.StoreOpWrite, s.dir, err)
	}
	historyPath := filepath.Join(s.dir, historyDir, historyName(nextSeq(names), cfg.ID))

	if err := writeFileAtomic(historyPath, data); err != nil {
		return errors.NewStoreError(errors.StoreOpWrite, s.dir, err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, currentFile), data); err != nil {
		_ = os.Remove(historyPath)
		return errors.NewStoreError(errors.StoreOpWrite, s.dir, err)
	}

	// The new configuration is committed; pruning problems are not fatal.
	if err := s.prune(); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("store", s.dir).Msg("Failed to prune configuration history")
	}
	return nil
}

// History reads history/ newest first.
func (s *FileStore) History(_ context.Context, limit int) ([]*sites.Configuration, error) {
	names, err := s.historyNames()
	if err != nil {
		return nil, errors.NewStoreError(errors.StoreOpRead, s.dir, err)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	out := make([]*sites.Configuration, 0, len(names))
	for _, name := range names {
		cfg, err := readConfiguration(filepath.Join(s.dir, historyDir, name))
		if err != nil {
			return nil, errors.NewStoreError(errors.StoreOpRead, s.dir, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// prune removes the oldest history entries beyond the limit.
func (s *FileStore) prune() error {
	names, err := s.historyNames()
	if err != nil {
		return err
	}
	if len(names) <= s.limit {
		return nil
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-s.limit] {
		if err := os.Remove(filepath.Join(s.dir, historyDir, name)); err != nil && !os.IsNotExist(err) {
			return errors.WrapIO("delete", name, err)
		}
	}
	return nil
}

// historyNames lists history file names in ascending order.
func (s *FileStore) historyNames() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, historyDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", historyDir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func historyName(seq int, id string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
	return fmt.Sprintf("%08d_%s.yaml", seq, safe)
}

// nextSeq returns one more than the highest sequence in names.
func nextSeq(names []string) int {
	highest := 0
	for _, name := range names {
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(prefix); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

func readConfiguration(path string) (*sites.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec sites.ConfigurationRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return rec.Configuration()
}

// writeFileAtomic writes data to a temporary file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sitecfg-*.tmp")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.WrapIO("move", path, err)
	}
	return nil
}
