package tsvdb

import (
	"context"
)

// Load reads every given path into a single store using default options.
//
// The paths parameter can be a mix of:
//   - Individual TSV files, optionally compressed (.gz, .bz2, .xz, .zst)
//   - Excel workbooks (.xlsx), one table per sheet
//   - Directories (all supported files within will be loaded)
//
// Each table's name is derived from the file name (without extensions) or
// the sheet name. All tables share one global entity-name space, so a name
// declared in one file can be referenced from any other.
//
// Example usage:
//
//	store, err := tsvdb.Load("data/planets.tsv", "data/moons.tsv")
//	if err != nil {
//		log.Fatal(err)
//	}
//	mass, err := store.GetFloatByName("planets", "mass", "PLANET_EARTH")
func Load(paths ...string) (*Store, error) {
	return LoadContext(context.Background(), paths...)
}

// LoadContext is Load with context support for cancellation. For custom
// options such as predefined enumerations or a custom unit registry, use
// NewBuilder instead.
func LoadContext(ctx context.Context, paths ...string) (*Store, error) {
	builder, err := NewBuilder().AddPaths(paths...).Build(ctx)
	if err != nil {
		return nil, err
	}
	return builder.Open(ctx)
}
