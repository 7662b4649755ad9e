package tsvdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tsvdb/tsvdb/unit"
)

// StoreBuilder configures input sources and postprocessing options before
// loading a store. Use NewBuilder to create one, then chain method calls.
//
// The typical usage pattern is:
//
//	builder := tsvdb.NewBuilder().AddPath("data/planets.tsv").AddFS(embeddedFS)
//	validated, err := builder.Build(ctx)
//	if err != nil {
//		return err
//	}
//	store, err := validated.Open(ctx)
type StoreBuilder struct {
	// paths contains regular file and directory paths
	paths []string
	// filesystems contains fs.FS instances, typically from go:embed
	filesystems []fs.FS
	// readers contains in-memory inputs added with AddReader
	readers []readerInput
	// collectedFiles contains resolved disk files after Build validation
	collectedFiles []*file
	// staticSources contains sources tokenized from filesystems and
	// readers during Build
	staticSources []source
	// cfg is handed to the postprocessor on Open
	cfg postprocessConfig
	// built guards Open against use before Build
	built bool
}

// readerInput pairs an io.Reader with the table name and format it carries.
type readerInput struct {
	reader    io.Reader
	tableName string
	fileType  FileType
}

// NewBuilder creates a builder with wiki lookup and precision tracking
// enabled and the default unit registry.
func NewBuilder() *StoreBuilder {
	return &StoreBuilder{
		cfg: postprocessConfig{
			wikiLookup:     true,
			wikiField:      defaultWikiField,
			trackPrecision: true,
		},
	}
}

// AddPath adds a file or directory path. Directories are scanned
// non-recursively for supported files (.tsv, compressed .tsv variants,
// .xlsx). Returns the builder for method chaining.
func (b *StoreBuilder) AddPath(path string) *StoreBuilder {
	b.paths = append(b.paths, path)
	return b
}

// AddPaths adds multiple paths at once, following the same rules as
// AddPath.
func (b *StoreBuilder) AddPaths(paths ...string) *StoreBuilder {
	b.paths = append(b.paths, paths...)
	return b
}

// AddFS adds all supported files from a filesystem, searched recursively.
// This is the natural input for go:embed datasets:
//
//	//go:embed data/*.tsv
//	var dataFS embed.FS
//
//	store, err := tsvdb.NewBuilder().AddFS(dataFS).Build(ctx)
func (b *StoreBuilder) AddFS(filesystem fs.FS) *StoreBuilder {
	b.filesystems = append(b.filesystems, filesystem)
	return b
}

// AddReader adds a single table from an io.Reader. The table name is taken
// from the name argument and fileType declares the stream's format, so
// compressed streams and whole workbooks both work. For XLSX input the
// sheet names override the given name.
func (b *StoreBuilder) AddReader(reader io.Reader, name string, fileType FileType) *StoreBuilder {
	b.readers = append(b.readers, readerInput{reader: reader, tableName: name, fileType: fileType})
	return b
}

// WithEnumerations registers external entity names, typically project-level
// constants, before any table is processed. They participate in global name
// uniqueness and INT resolution like table-defined names.
func (b *StoreBuilder) WithEnumerations(enumerations map[string]int) *StoreBuilder {
	if b.cfg.enumerations == nil {
		b.cfg.enumerations = make(map[string]int, len(enumerations))
	}
	for name, row := range enumerations {
		b.cfg.enumerations[name] = row
	}
	return b
}

// WithUnitRegistry replaces the default unit registry used for FLOAT
// conversion.
func (b *StoreBuilder) WithUnitRegistry(registry *unit.Registry) *StoreBuilder {
	b.cfg.units = registry
	return b
}

// WithWikiField overrides the column name resolved into the wiki lookup.
// The default is "en.wiki".
func (b *StoreBuilder) WithWikiField(field string) *StoreBuilder {
	b.cfg.wikiField = field
	return b
}

// DisableWikiLookup skips wiki title collection entirely.
func (b *StoreBuilder) DisableWikiLookup() *StoreBuilder {
	b.cfg.wikiLookup = false
	return b
}

// DisablePrecision skips significant-digit tracking for FLOAT fields.
func (b *StoreBuilder) DisablePrecision() *StoreBuilder {
	b.cfg.trackPrecision = false
	return b
}

// Build validates all configured inputs and prepares the builder for Open.
// Directory paths are expanded, file existence and extensions are checked,
// and filesystem and reader inputs are tokenized. Duplicate paths are
// loaded once.
func (b *StoreBuilder) Build(ctx context.Context) (*StoreBuilder, error) {
	if len(b.paths) == 0 && len(b.filesystems) == 0 && len(b.readers) == 0 {
		return nil, errors.New("tsvdb: at least one input source must be specified")
	}

	seen := make(map[string]bool)
	for _, path := range b.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("file does not exist: %s", path)
		}
		if info.IsDir() {
			entries, err := collectDirFiles(path)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if !seen[entry] {
					seen[entry] = true
					b.collectedFiles = append(b.collectedFiles, newFile(entry))
				}
			}
			continue
		}
		if !isSupportedFile(path) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
		}
		if !seen[path] {
			seen[path] = true
			b.collectedFiles = append(b.collectedFiles, newFile(path))
		}
	}

	for _, filesystem := range b.filesystems {
		if err := b.collectFSSources(ctx, filesystem); err != nil {
			return nil, err
		}
	}

	for _, input := range b.readers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sources, err := readSourcesFromReader(input.reader, input.tableName, input.fileType)
		if err != nil {
			return nil, fmt.Errorf("reader input %q: %w", input.tableName, err)
		}
		b.staticSources = append(b.staticSources, sources...)
	}

	b.built = true
	return b, nil
}

// collectDirFiles lists the supported files directly inside a directory.
func collectDirFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range supportedFileExtPatterns() {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported files found in directory: %s", dir)
	}
	return files, nil
}

// collectFSSources walks a filesystem and tokenizes every supported file.
func (b *StoreBuilder) collectFSSources(ctx context.Context, filesystem fs.FS) error {
	return fs.WalkDir(filesystem, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !isSupportedFile(path) {
			return nil
		}
		f, err := filesystem.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		sources, err := readSourcesFromReader(f, tableNameFromPath(path), detectFileType(path))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		b.staticSources = append(b.staticSources, sources...)
		return nil
	})
}

// Open runs the two-phase pipeline over every validated input and returns
// the immutable store. Build must have been called first.
func (b *StoreBuilder) Open(ctx context.Context) (*Store, error) {
	if !b.built {
		return nil, errors.New("tsvdb: Build() must be called before Open()")
	}

	sources := make([]source, 0, len(b.collectedFiles)+len(b.staticSources))
	for _, f := range b.collectedFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileSources, err := f.readSources()
		if err != nil {
			return nil, err
		}
		sources = append(sources, fileSources...)
	}
	sources = append(sources, b.staticSources...)

	tables := make([]*intermediateTable, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		it, err := preprocess(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.name, err)
		}
		if it == nil {
			// DONT_PARSE
			continue
		}
		tables = append(tables, it)
	}
	if len(tables) == 0 {
		return nil, ErrEmptyData
	}

	return newPostprocessor(b.cfg).run(ctx, tables)
}
