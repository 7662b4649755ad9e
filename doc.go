// Package tsvdb loads tab-delimited data-definition files into an immutable
// typed columnar store.
//
// The format is TSV with a thin schema layer on top: header rows declare
// per-field types (BOOL, INT, FLOAT, STRING, STRING_NAME and ARRAY variants),
// defaults, units, and name prefixes; comment lines and comment columns start
// with "#"; directive lines start with "@". Six table formats are supported:
// entity tables (DB_ENTITIES), anonymous-row tables (DB_ANONYMOUS_ROWS),
// mod tables that patch an existing table (DB_ENTITIES_MOD), bare name lists
// (ENUMERATION), wiki title lookups (WIKI_LOOKUP), and 2D matrices indexed by
// entity names on both axes (ENUM_X_ENUM).
//
// Entity names are globally unique across all loaded tables and form one
// shared enumeration space: any INT cell anywhere may hold an entity name,
// which resolves to that entity's row index in its own table.
//
// # Basic Usage
//
//	store, err := tsvdb.Load("data/planets.tsv", "data/moons.tsv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mass, err := store.GetFloatByName("planets", "mass", "PLANET_EARTH")
//
// # Advanced Usage
//
// For embedded filesystems, readers, predefined enumerations, or a custom
// unit registry, use the Builder pattern:
//
//	builder := tsvdb.NewBuilder().
//	    AddFS(embeddedFS).
//	    WithEnumerations(map[string]int{"BODYFLAGS_STAR": 1})
//
//	validated, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := validated.Open(ctx)
//
// # Table Naming
//
// Table names are derived from file paths:
//   - "planets.tsv" becomes table "planets"
//   - "planets.tsv.gz" becomes table "planets"
//   - "bodies.xlsx" contributes one table per sheet, named after the sheet
//
// # Units and Precision
//
// FLOAT columns may declare a unit; cell values are converted to internal
// units (SI) at load time. Compound unit symbols such as "km/s" or
// "m^3/(kg s^2)" are parsed structurally. The number of significant digits
// of every FLOAT cell is recorded and can be queried alongside the value.
//
// Loaded stores are immutable: every accessor returns copies or values, and
// nothing in the public API can modify a store after Open.
package tsvdb
