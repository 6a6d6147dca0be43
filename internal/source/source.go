package source

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"

	"sheet-compiler/internal/config"
	"sheet-compiler/internal/logger"
	"sheet-compiler/internal/table"
	"sheet-compiler/internal/transform"
)

// Adapter produces named tables.
type Adapter interface {
	LoadTables() (map[string]*table.Table, error)
}

// Reader reads the raw table of one source entry. path is the entry's path
// resolved against the config directory.
type Reader interface {
	Read(src config.Source, path string) (*table.Table, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(src config.Source, path string) (*table.Table, error)

// Read calls f.
func (f ReaderFunc) Read(src config.Source, path string) (*table.Table, error) { return f(src, path) }

// Loader loads every source of a configuration.
type Loader struct {
	fs      afero.Fs
	baseDir string
	sources []config.Source
	aliases map[string]table.Alias
	readers map[string]Reader
	log     logger.Logger
}

var _ Adapter = (*Loader)(nil)

// Option configures a Loader.
type Option func(*Loader)

// WithFs reads csv and xlsx files from fs. sqlite databases are always
// opened from the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(l *Loader) { l.fs = fs }
}

// WithReader registers r for source type typ, replacing any built-in one.
func WithReader(typ string, r Reader) Option {
	return func(l *Loader) { l.readers[typ] = r }
}

// WithLogger sets the loader logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// NewLoader returns a loader for the sources and aliases of cfg.
func NewLoader(cfg *config.Config, opts ...Option) *Loader {
	l := &Loader{
		fs:      afero.NewOsFs(),
		baseDir: cfg.BaseDir,
		sources: cfg.Sources,
		aliases: withTimezone(cfg.Schema.Aliases, cfg.Timezone),
		readers: map[string]Reader{},
		log:     logger.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	builtins := map[string]Reader{
		"csv":    ReaderFunc(l.readCSV),
		"xlsx":   ReaderFunc(l.readXLSX),
		"sqlite": ReaderFunc(readSQLite),
		"inline": ReaderFunc(readInline),
	}

	for typ, r := range builtins {
		if _, ok := l.readers[typ]; !ok {
			l.readers[typ] = r
		}
	}

	return l
}

// LoadTables loads every source, keyed by id.
func (l *Loader) LoadTables() (map[string]*table.Table, error) {
	out := make(map[string]*table.Table, len(l.sources))

	for _, src := range l.sources {
		t, err := l.Load(src)
		if err != nil {
			return nil, err
		}

		out[src.ID] = t
	}

	return out, nil
}

// Load reads one source, then applies its renames, its transforms and the
// schema aliases.
func (l *Loader) Load(src config.Source) (*table.Table, error) {
	r, ok := l.readers[src.Type]
	if !ok {
		return nil, fmt.Errorf("source %q: unsupported type %q", src.ID, src.Type)
	}

	t, err := r.Read(src, l.resolve(src.Path))
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", src.ID, err)
	}

	t = t.WithName(src.ID)

	if len(src.Rename) > 0 {
		if t, err = t.Rename(src.Rename); err != nil {
			return nil, fmt.Errorf("source %q rename: %w", src.ID, err)
		}
	}

	if t, err = applyTransforms(t, src.Transforms); err != nil {
		return nil, fmt.Errorf("source %q: %w", src.ID, err)
	}

	if t, err = table.Enforce(t, l.aliases); err != nil {
		return nil, err
	}

	l.log.Info("loaded source", "source", src.ID, "type", src.Type, "rows", t.Len(), "columns", t.Width())

	return t, nil
}

// withTimezone gives date aliases without a timezone the config default.
func withTimezone(aliases map[string]table.Alias, tz string) map[string]table.Alias {
	if tz == "" {
		return aliases
	}

	out := maps.Clone(aliases)

	for name, a := range out {
		if a.Type != "date" {
			continue
		}

		date := table.DateSpec{Timezone: tz}
		if a.Date != nil {
			date = *a.Date
			if date.Timezone == "" {
				date.Timezone = tz
			}
		}

		a.Date = &date
		out[name] = a
	}

	return out
}

func (l *Loader) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(l.baseDir, path)
}

func applyTransforms(t *table.Table, transforms map[string][]any) (*table.Table, error) {
	for _, name := range slices.Sorted(maps.Keys(transforms)) {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("transforms: no column %q", name)
		}

		p, err := transform.ParsePipeline(transforms[name])
		if err != nil {
			return nil, fmt.Errorf("transforms for %q: %w", name, err)
		}

		out, err := p.Column(col)
		if err != nil {
			return nil, fmt.Errorf("transforms for %q: %w", name, err)
		}

		if t, err = t.WithColumn(out); err != nil {
			return nil, err
		}
	}

	return t, nil
}
