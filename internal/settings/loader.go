package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Loader reads settings files, following extends chains and resolving
// interpolation. A Loader holds no state between calls and is safe for
// concurrent use.
type Loader struct {
	fs         FileSystem
	section    string
	delimiters string
	meta       bool
	maxDepth   int
	logger     *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		fs:         DefaultFS(),
		delimiters: DefaultDelimiters,
		maxDepth:   DefaultMaxInterpolationDepth,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the settings file at path with a new Loader.
func Load(path string, opts ...Option) (*Settings, error) {
	return NewLoader(opts...).Load(path)
}

// Load reads the settings file at path.
//
// Relative paths are resolved against the working directory and a leading
// "~/" against the user's home directory. The result is either fully resolved
// or nil with an error.
func (l *Loader) Load(path string) (*Settings, error) {
	abs, err := absPath(path)
	if err != nil {
		return nil, err
	}

	res, err := l.load(abs, nil)
	if err != nil {
		return nil, err
	}

	return newSettings(res.file, res.bases, res.values, res.origins), nil
}

// LoadAll loads independent settings files concurrently. Results are in the
// order of paths. The first failure cancels the remaining loads.
func (l *Loader) LoadAll(ctx context.Context, paths ...string) ([]*Settings, error) {
	out := make([]*Settings, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := l.Load(path)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// resolved is the merged result for one file of an extends chain.
type resolved struct {
	file    string
	bases   []string
	values  map[string]string
	origins map[string]string
}

// load resolves the file at the absolute path. chain holds the files already
// being resolved, starting with the requested one.
func (l *Loader) load(path string, chain []string) (*resolved, error) {
	for _, p := range chain {
		if p == path {
			visited := make([]string, len(chain))
			copy(visited, chain)
			return nil, &CyclicExtendsError{Path: path, Chain: visited}
		}
	}
	chain = append(chain[:len(chain):len(chain)], path)

	raw, err := l.read(path)
	if err != nil {
		return nil, err
	}

	fixed := map[string]string{KeyDir: raw.dir}
	if l.meta {
		fixed[KeyFile] = path
		fixed[KeyBase] = ""
		fixed[KeyBases] = ""
		if _, ok := raw.values[KeyEnv]; !ok {
			fixed[KeyEnv] = envFromFile(path)
		}
	}

	res := &resolved{
		file:    path,
		values:  make(map[string]string),
		origins: make(map[string]string),
	}

	parent, err := l.loadParent(raw, fixed, chain)
	if err != nil {
		return nil, err
	}

	var inherited map[string]string
	if parent != nil {
		inherited = parent.values
		for k, v := range parent.values {
			res.values[k] = v
			res.origins[k] = parent.origins[k]
		}
		res.bases = append([]string{parent.file}, parent.bases...)
		if l.meta {
			fixed[KeyBase] = parent.file
			fixed[KeyBases] = strings.Join(res.bases, string(os.PathListSeparator))
		}
	}

	in := newInterpolator(path, raw.values, fixed, inherited, l.maxDepth)
	for _, key := range raw.keys {
		if key == KeyExtends {
			res.values[key] = raw.values[key]
			res.origins[key] = path
			continue
		}
		v, err := in.resolve(key)
		if err != nil {
			return nil, err
		}
		res.values[key] = v
		res.origins[key] = path
	}
	for k, v := range fixed {
		res.values[k] = v
		res.origins[k] = path
	}

	l.logger.Debug("loaded settings file",
		"path", path,
		"keys", len(raw.keys),
		"bases", len(res.bases),
	)

	return res, nil
}

// loadParent resolves the extends setting of raw, if any. The extends value
// itself may only reference the file's own keys and fixed values.
func (l *Loader) loadParent(raw *rawFile, fixed map[string]string, chain []string) (*resolved, error) {
	if _, ok := raw.values[KeyExtends]; !ok {
		return nil, nil
	}

	in := newInterpolator(raw.path, raw.values, fixed, nil, l.maxDepth)
	extends, err := in.resolve(KeyExtends)
	if err != nil {
		return nil, err
	}
	extends = strings.TrimSpace(extends)
	if extends == "" {
		return nil, nil
	}

	parentPath, err := resolveExtends(raw.dir, extends)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("following extends", "path", raw.path, "extends", parentPath)

	parent, err := l.load(parentPath, chain)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil, fmt.Errorf("extends in %s: %w", raw.path, err)
		}
		return nil, err
	}
	return parent, nil
}

// read parses the file at the absolute path.
func (l *Loader) read(path string) (*rawFile, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("reading settings file %s: is a directory", path)
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	return parseFile(path, filepath.Dir(path), data, l.section, l.delimiters)
}

// absPath returns the cleaned absolute form of path, expanding a leading "~/".
func absPath(path string) (string, error) {
	path, err := expandHome(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

// resolveExtends resolves an extends value against the directory of the file
// that defines it.
func resolveExtends(dir, extends string) (string, error) {
	extends, err := expandHome(extends)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(extends) {
		extends = filepath.Join(dir, extends)
	}
	return filepath.Clean(extends), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
