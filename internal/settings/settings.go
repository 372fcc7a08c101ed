package settings

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dshills/tangled/internal/convert"
	"github.com/dshills/tangled/internal/lazy"
)

// Settings is a fully merged and interpolated settings mapping.
// It is immutable once returned by a Loader.
type Settings struct {
	file    string
	bases   []string
	values  map[string]string
	origins map[string]string
	keys    *lazy.Value[[]string]
}

func newSettings(file string, bases []string, values, origins map[string]string) *Settings {
	s := &Settings{
		file:    file,
		bases:   bases,
		values:  values,
		origins: origins,
	}
	s.keys = lazy.Of(func() []string {
		keys := make([]string, 0, len(s.values))
		for k := range s.values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	})
	return s
}

// Get returns the value for key, or "" if it is not set.
func (s *Settings) Get(key string) string {
	return s.values[key]
}

// Lookup returns the value for key and whether it is set.
func (s *Settings) Lookup(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key is set.
func (s *Settings) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns all keys sorted.
func (s *Settings) Keys() []string {
	keys := s.keys.MustGet()
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Len returns the number of settings.
func (s *Settings) Len() int {
	return len(s.values)
}

// Map returns a copy of the settings.
func (s *Settings) Map() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Dir returns the directory of the loaded file.
func (s *Settings) Dir() string {
	return s.values[KeyDir]
}

// File returns the absolute path of the loaded file.
func (s *Settings) File() string {
	return s.file
}

// Bases returns the absolute paths of the extends chain, nearest parent first.
func (s *Settings) Bases() []string {
	out := make([]string, len(s.bases))
	copy(out, s.bases)
	return out
}

// Files returns File followed by Bases.
func (s *Settings) Files() []string {
	return append([]string{s.file}, s.bases...)
}

// Origin returns the path of the file whose value for key won the merge.
func (s *Settings) Origin(key string) string {
	return s.origins[key]
}

// Env returns the env setting, falling back to the file's base name without
// its extension.
func (s *Settings) Env() string {
	if env, ok := s.values[KeyEnv]; ok && env != "" {
		return env
	}
	return envFromFile(s.file)
}

// String returns the value for key, failing if it is not set.
func (s *Settings) String(key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", &MissingError{Keys: []string{key}}
	}
	return v, nil
}

// Int converts the value for key to an int.
func (s *Settings) Int(key string) (int, error) {
	v, err := s.convert(key, "int", convert.Int)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Float converts the value for key to a float64.
func (s *Settings) Float(key string) (float64, error) {
	v, err := s.convert(key, "float", convert.Float)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Bool converts the value for key to a bool.
func (s *Settings) Bool(key string) (bool, error) {
	v, err := s.convert(key, "bool", convert.Bool)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Duration converts the value for key to a time.Duration.
func (s *Settings) Duration(key string) (time.Duration, error) {
	v, err := s.convert(key, "duration", convert.Duration)
	if err != nil {
		return 0, err
	}
	return v.(time.Duration), nil
}

// List splits the value for key on sep (whitespace when empty).
func (s *Settings) List(key, sep string) ([]string, error) {
	raw, err := s.String(key)
	if err != nil {
		return nil, err
	}
	return convert.Strings(raw, sep)
}

// Typed decodes the settings as JSON values. See Parse.
func (s *Settings) Typed(opts ParseOptions) (map[string]any, error) {
	return Parse(s.values, opts)
}

func (s *Settings) convert(key, typ string, c convert.Converter) (any, error) {
	raw, err := s.String(key)
	if err != nil {
		return nil, err
	}
	v, err := c(raw)
	if err != nil {
		return nil, &ValueError{Key: key, Type: typ, Value: raw, Err: err}
	}
	return v, nil
}

func envFromFile(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
