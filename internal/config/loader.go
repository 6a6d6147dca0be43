package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

const includeKey = "include"

// Loader reads configuration documents from a filesystem.
type Loader struct {
	fs        afero.Fs
	lookupEnv func(string) (string, bool)
}

// Option configures a Loader.
type Option func(*Loader)

// WithFs reads documents from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(l *Loader) { l.fs = fs }
}

// WithEnv resolves ${VAR} tokens with lookup instead of os.LookupEnv.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(l *Loader) { l.lookupEnv = lookup }
}

// NewLoader returns a loader over the OS filesystem and environment.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{fs: afero.NewOsFs(), lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads, composes, validates and decodes the configuration at path.
func Load(path, profile string) (*Config, error) {
	return NewLoader().Load(path, profile)
}

// Load reads, composes, validates and decodes the configuration at path.
func (l *Loader) Load(path, profile string) (*Config, error) {
	tree, err := l.LoadTree(path, profile)
	if err != nil {
		return nil, err
	}

	cfg, err := Decode(tree)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.BaseDir = filepath.Dir(path)

	return cfg, nil
}

// LoadTree runs the composition steps and schema validation and returns
// the resulting document.
func (l *Loader) LoadTree(path, profile string) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	seen := map[string]bool{}

	root, err := l.loadDocument(abs, seen)
	if err != nil {
		return nil, err
	}

	if profile != "" {
		overlay, err := l.loadProfile(filepath.Dir(abs), profile, seen)
		if err != nil {
			return nil, err
		}

		root = Merge(root, overlay)
	}

	root, err = ResolveRefs(root)
	if err != nil {
		return nil, err
	}

	root, err = Interpolate(root, l.lookupEnv)
	if err != nil {
		return nil, err
	}

	if err := ValidateSchema(root); err != nil {
		return nil, err
	}

	return root, nil
}

// loadDocument loads path and everything it includes. Included documents
// are merged first, in sorted match order; the document's own keys go last.
func (l *Loader) loadDocument(path string, seen map[string]bool) (map[string]any, error) {
	seen[path] = true

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	doc, err := parseDocument(path, data)
	if err != nil {
		return nil, &Error{Path: path, Msg: "unreadable document", Err: err}
	}

	patterns, err := includePatterns(doc[includeKey])
	if err != nil {
		return nil, &Error{Path: includeKey, Msg: err.Error()}
	}

	delete(doc, includeKey)

	acc := map[string]any{}

	for _, pattern := range patterns {
		matches, err := l.glob(filepath.Dir(path), pattern)
		if err != nil {
			return nil, &Error{Path: includeKey, Msg: fmt.Sprintf("bad pattern %q", pattern), Err: err}
		}

		for _, m := range matches {
			if seen[m] {
				continue
			}

			included, err := l.loadDocument(m, seen)
			if err != nil {
				return nil, err
			}

			acc = Merge(acc, included)
		}
	}

	return Merge(acc, doc), nil
}

func includePatterns(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))

		for _, p := range v {
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("include entries must be strings, got %T", p)
			}

			out = append(out, s)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("include must be a list of globs, got %T", raw)
	}
}

// glob expands pattern relative to dir and returns sorted absolute paths.
func (l *Loader) glob(dir, pattern string) ([]string, error) {
	full := pattern
	if !filepath.IsAbs(full) {
		full = filepath.Join(dir, pattern)
	}

	base, rel := doublestar.SplitPattern(filepath.ToSlash(full))
	fsys := afero.NewIOFS(afero.NewBasePathFs(l.fs, filepath.FromSlash(base)))

	matches, err := doublestar.Glob(fsys, rel, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(filepath.FromSlash(base), filepath.FromSlash(m))
	}

	slices.Sort(out)

	return out, nil
}

func (l *Loader) loadProfile(dir, profile string, seen map[string]bool) (map[string]any, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, "profiles", profile+ext)

		ok, err := afero.Exists(l.fs, path)
		if err != nil {
			return nil, err
		}

		if ok {
			return l.loadDocument(path, seen)
		}
	}

	return nil, errorf("profile", "profile %q not found under %s", profile, filepath.Join(dir, "profiles"))
}
