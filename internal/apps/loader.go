package apps

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/hotstart/hotstart/internal/preload"
)

// ErrNotFound is returned when no record matches a requested config name
var ErrNotFound = errors.New("app config not found")

// Loader reads app definitions from a directory, one file per app
type Loader struct {
	dir    string
	logger *zap.Logger
}

func NewLoader(dir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dir: dir, logger: logger}
}

func (l *Loader) Dir() string {
	return l.dir
}

// Load returns the records of every *.json and *.toml file in the
// directory, in file name order. Files that cannot be parsed are logged and
// skipped. A missing directory yields no records.
func (l *Loader) Load() ([]*preload.Record, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read apps directory")
	}

	var records []*preload.Record
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !IsConfigFile(entry.Name()) {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		r, err := LoadFile(path)
		if err != nil {
			l.logger.Warn("Skipping app config", zap.String("file", path), zap.Error(err))
			continue
		}

		if prev, dup := seen[strings.ToLower(r.ConfigName)]; dup {
			l.logger.Warn("Skipping duplicate app config",
				zap.String("file", path),
				zap.String("kept", prev))
			continue
		}
		seen[strings.ToLower(r.ConfigName)] = path

		records = append(records, r)
	}

	return records, nil
}

// LoadFile parses a single app file. The config name is the file name
// without its extension.
func LoadFile(path string) (*preload.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read app config")
	}

	var seed Seed
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &seed)
	case ".toml":
		err = toml.Unmarshal(data, &seed)
	default:
		return nil, errors.Errorf("unsupported app config format: %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", filepath.Base(path))
	}

	return seed.Record(ConfigName(path))
}

// ConfigName returns the file name of path without its extension
func ConfigName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func IsConfigFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".toml":
		return true
	}
	return false
}

// Find returns the record whose config name matches name, ignoring case.
// A trailing .json or .toml on name is accepted.
func Find(records []*preload.Record, name string) (*preload.Record, error) {
	if IsConfigFile(name) {
		name = ConfigName(name)
	}
	for _, r := range records {
		if strings.EqualFold(r.ConfigName, name) {
			return r, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%q", name)
}

// Suggest returns config names that fuzzy-match name, best first
func Suggest(records []*preload.Record, name string) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.ConfigName
	}

	matches := fuzzy.Find(name, names)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}
