package tsvdb

import (
	"context"
	"fmt"

	"github.com/tsvdb/tsvdb/unit"
)

// defaultWikiField is the DB-style column resolved into the wiki lookup.
const defaultWikiField = "en.wiki"

// postprocessConfig carries the per-run settings assembled by the builder.
type postprocessConfig struct {
	enumerations   map[string]int
	wikiLookup     bool
	wikiField      string
	trackPrecision bool
	units          *unit.Registry
}

// postprocessor consumes the ordered intermediate tables of one dataset and
// produces the finalized store. It is single-use: one instance per run.
type postprocessor struct {
	cfg   postprocessConfig
	store *Store
	res   *resolver
}

func newPostprocessor(cfg postprocessConfig) *postprocessor {
	if cfg.units == nil {
		cfg.units = unit.NewRegistry()
	}
	if cfg.wikiField == "" {
		cfg.wikiField = defaultWikiField
	}
	enums := newEnumerationSpace()
	return &postprocessor{
		cfg: cfg,
		store: &Store{
			tables:    make(map[string]*Table),
			enums:     enums,
			wiki:      make(map[string]string),
			precision: make(map[string]map[string][]int),
		},
		res: &resolver{enums: enums, units: cfg.units},
	}
}

// run executes the full postprocess: enumeration building, then value
// resolution with mods strictly last. Any error aborts the run and the
// partially built store must not be used.
func (p *postprocessor) run(ctx context.Context, tables []*intermediateTable) (*Store, error) {
	ordered := partitionModsLast(tables)

	if err := p.registerPredefined(); err != nil {
		return nil, err
	}
	if err := p.buildEnumerations(ordered); err != nil {
		return nil, err
	}

	for _, it := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch it.format {
		case FormatDBEntities, FormatDBAnonymousRows:
			err = p.resolveDBTable(it)
		case FormatEnumeration:
			// The enumeration skeleton from the first pass is complete.
		case FormatWikiLookup:
			err = p.resolveWikiLookup(it)
		case FormatEnumXEnum:
			err = p.resolveEnumXEnum(it)
		case FormatDBEntitiesMod:
			err = p.applyMod(it)
		}
		if err != nil {
			return nil, err
		}
	}
	return p.store, nil
}

// partitionModsLast moves every mod table after every non-mod table while
// preserving relative order within each group. Mods must see fully built
// base tables and enumerations.
func partitionModsLast(tables []*intermediateTable) []*intermediateTable {
	ordered := make([]*intermediateTable, 0, len(tables))
	for _, it := range tables {
		if it.format != FormatDBEntitiesMod {
			ordered = append(ordered, it)
		}
	}
	for _, it := range tables {
		if it.format == FormatDBEntitiesMod {
			ordered = append(ordered, it)
		}
	}
	return ordered
}

// registerPredefined enters caller-supplied enumerations into the global
// space before any table is processed.
func (p *postprocessor) registerPredefined() error {
	for name, row := range p.cfg.enumerations {
		if err := p.store.enums.register(name, "", row); err != nil {
			return err
		}
	}
	return nil
}

// buildEnumerations is the first full pass: every entity-name-bearing base
// table gets a skeleton with its enumeration, then mod tables extend their
// target's enumeration with any new names.
func (p *postprocessor) buildEnumerations(ordered []*intermediateTable) error {
	for _, it := range ordered {
		switch it.format {
		case FormatDBEntities, FormatEnumeration:
			if err := p.newSkeleton(it, it.rowNames); err != nil {
				return err
			}
		case FormatDBAnonymousRows:
			if err := p.newSkeleton(it, nil); err != nil {
				return err
			}
		case FormatDBEntitiesMod:
			if err := p.extendEnumeration(it); err != nil {
				return err
			}
		}
	}
	return nil
}

// newSkeleton creates the table entry with its enumeration. Value columns
// are filled by the second pass.
func (p *postprocessor) newSkeleton(it *intermediateTable, rowNames []string) error {
	if _, exists := p.store.tables[it.name]; exists {
		return fmt.Errorf("%w: table %q", ErrDuplicateName, it.name)
	}
	t := &Table{
		name:     it.name,
		format:   it.format,
		prefix:   it.entityPrefix,
		rowCount: len(it.cells),
		index:    make(map[string]int, len(rowNames)),
		columns:  make(map[string]*column),
	}
	for row, name := range rowNames {
		if err := p.store.enums.register(name, it.name, row); err != nil {
			return err
		}
		t.index[name] = row
		t.names = append(t.names, name)
	}
	p.store.tables[it.name] = t
	p.store.order = append(p.store.order, it.name)
	return nil
}

// extendEnumeration appends a mod table's new entity names to its target's
// enumeration. Existing names keep their rows; a new name colliding with an
// unrelated enumeration is fatal.
func (p *postprocessor) extendEnumeration(it *intermediateTable) error {
	target, ok := p.store.tables[it.modifies]
	if !ok {
		return fmt.Errorf("%w: mod table %q modifies unknown table %q",
			ErrTableNotFound, it.name, it.modifies)
	}
	if target.format != FormatDBEntities && target.format != FormatEnumeration {
		return fmt.Errorf("%w: mod table %q modifies %v table %q",
			ErrSchema, it.name, target.format, it.modifies)
	}
	for _, name := range it.rowNames {
		if _, exists := target.index[name]; exists {
			continue
		}
		row := len(target.names)
		if err := p.store.enums.register(name, target.name, row); err != nil {
			return err
		}
		target.index[name] = row
		target.names = append(target.names, name)
	}
	return nil
}

// resolveDBTable is the second-pass value resolution for DB_ENTITIES and
// DB_ANONYMOUS_ROWS: one fixed-length typed column per field, sized to the
// pre-mod row count.
func (p *postprocessor) resolveDBTable(it *intermediateTable) error {
	t := p.store.tables[it.name]
	for i := range it.fields {
		spec := &it.fields[i]
		col, counts, err := p.resolveColumn(it, spec, i)
		if err != nil {
			return err
		}
		t.columns[spec.name] = col
		t.order = append(t.order, spec.name)
		if counts != nil {
			p.setPrecision(it.name, spec.name, counts)
		}
		if p.cfg.wikiLookup && spec.name == p.cfg.wikiField && t.names != nil {
			for row := range it.cells {
				if it.cells[row][i].isEmpty() {
					continue
				}
				p.store.wiki[t.names[row]] = col.values[row].Text()
			}
		}
	}
	return nil
}

// resolveColumn resolves one field into its final column, recording the
// resolved default for later mod resizing and, for FLOAT fields, the
// per-row precision.
func (p *postprocessor) resolveColumn(it *intermediateTable, spec *fieldSpec, fieldIdx int) (*column, []int, error) {
	def, err := p.resolveDefault(it, spec)
	if err != nil {
		return nil, nil, err
	}
	col := &column{
		name:   spec.name,
		typ:    spec.typ,
		unit:   spec.unit,
		def:    def,
		values: make([]Value, len(it.cells)),
	}
	trackPrecision := p.cfg.trackPrecision && spec.typ.Scalar == TypeFloat && !spec.typ.Array
	var counts []int
	if trackPrecision {
		counts = make([]int, len(it.cells))
	}
	for row := range it.cells {
		raw := it.cells[row][fieldIdx]
		v, err := p.res.resolve(raw, spec.typ, spec.unit, it.in)
		if err != nil {
			return nil, nil, fmt.Errorf("table %q, field %q: %w", it.name, spec.name, err)
		}
		col.values[row] = v
		if trackPrecision {
			counts[row], err = rawFloatPrecision(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("table %q, field %q: %w", it.name, spec.name, err)
			}
		}
	}
	return col, counts, nil
}

// resolveDefault resolves a field's declared default, falling back to the
// per-type missing sentinel.
func (p *postprocessor) resolveDefault(it *intermediateTable, spec *fieldSpec) (Value, error) {
	if spec.def.isEmpty() {
		return missingValue(spec.typ), nil
	}
	def, err := p.res.resolve(spec.def, spec.typ, spec.unit, it.in)
	if err != nil {
		return Value{}, fmt.Errorf("table %q, field %q: Default: %w", it.name, spec.name, err)
	}
	return def, nil
}

// rawFloatPrecision derives precision from the preprocessed numeric string.
func rawFloatPrecision(raw rawValue) (int, error) {
	if raw.isEmpty() {
		return precisionUnknown, nil
	}
	return floatPrecision(raw.s)
}

func (p *postprocessor) setPrecision(table, field string, counts []int) {
	fields, ok := p.store.precision[table]
	if !ok {
		fields = make(map[string][]int)
		p.store.precision[table] = fields
	}
	fields[field] = counts
}

// resolveWikiLookup resolves a standalone lookup table into the shared wiki
// map. The table itself is never inserted into the store, and later entries
// overwrite earlier ones for the same key.
func (p *postprocessor) resolveWikiLookup(it *intermediateTable) error {
	if !p.cfg.wikiLookup {
		return nil
	}
	fieldIdx := it.fieldIndex(p.cfg.wikiField)
	if fieldIdx < 0 {
		return fmt.Errorf("%w: wiki lookup table %q has no %q field",
			ErrSchema, it.name, p.cfg.wikiField)
	}
	spec := &it.fields[fieldIdx]
	for row, key := range it.rowNames {
		raw := it.cells[row][fieldIdx]
		if raw.isEmpty() {
			continue
		}
		v, err := p.res.resolve(raw, spec.typ, "", it.in)
		if err != nil {
			return fmt.Errorf("table %q: %w", it.name, err)
		}
		p.store.wiki[key] = v.Text()
	}
	return nil
}

// resolveEnumXEnum builds the grid sized to the axis enumerations' extents,
// which may exceed the file's explicit extent; unspecified cells keep the
// shared default.
func (p *postprocessor) resolveEnumXEnum(it *intermediateTable) error {
	if _, exists := p.store.tables[it.name]; exists {
		return fmt.Errorf("%w: table %q", ErrDuplicateName, it.name)
	}

	def, err := p.resolveDefault(it, &it.gridField)
	if err != nil {
		return err
	}
	rowAxis, rowExtent, rowIdx, err := p.resolveAxis(it, it.gridRowNames)
	if err != nil {
		return err
	}
	colAxis, colExtent, colIdx, err := p.resolveAxis(it, it.gridColNames)
	if err != nil {
		return err
	}

	grid := make([][]Value, rowExtent)
	for r := range grid {
		rowValues := make([]Value, colExtent)
		for c := range rowValues {
			rowValues[c] = def
		}
		grid[r] = rowValues
	}
	for r := range it.grid {
		for c := range it.grid[r] {
			raw := it.grid[r][c]
			if raw.isEmpty() {
				continue
			}
			v, err := p.res.resolve(raw, it.gridField.typ, it.gridField.unit, it.in)
			if err != nil {
				return fmt.Errorf("table %q: %w", it.name, err)
			}
			grid[rowIdx[r]][colIdx[c]] = v
		}
	}

	t := &Table{
		name:     it.name,
		format:   FormatEnumXEnum,
		rowCount: rowExtent,
		columns:  make(map[string]*column),
		index:    make(map[string]int),
		grid:     grid,
		rowAxis:  rowAxis,
		colAxis:  colAxis,
	}
	p.store.tables[it.name] = t
	p.store.order = append(p.store.order, it.name)
	return nil
}

// resolveAxis maps one axis' entity names to enumeration indices. Every
// name must belong to the same enumeration, and the axis extent is that
// enumeration's full size.
func (p *postprocessor) resolveAxis(it *intermediateTable, names []string) (owner string, extent int, indices []int, err error) {
	indices = make([]int, len(names))
	maxRow := -1
	for i, name := range names {
		entry, ok := p.store.enums.lookup(name)
		if !ok {
			return "", 0, nil, fmt.Errorf("%w: %q in ENUM_X_ENUM table %q", ErrUnknownEntity, name, it.name)
		}
		if i == 0 {
			owner = entry.table
		} else if entry.table != owner {
			return "", 0, nil, fmt.Errorf("%w: table %q mixes enumerations %q and %q on one axis",
				ErrSchema, it.name, owner, entry.table)
		}
		indices[i] = entry.row
		if entry.row > maxRow {
			maxRow = entry.row
		}
	}
	if owner != "" {
		extent = len(p.store.tables[owner].names)
	} else {
		// Predefined enumerations have no table; size to the largest
		// referenced index.
		extent = maxRow + 1
	}
	return owner, extent, indices, nil
}

// applyMod applies one DB_ENTITIES_MOD table to its already-resolved
// target: new fields are created and default-filled, every column is
// resized to the extended enumeration, then the mod's cells overwrite the
// target rows. Fields the mod does not mention are left untouched.
func (p *postprocessor) applyMod(it *intermediateTable) error {
	target := p.store.tables[it.modifies]

	// New fields get a fully default-filled column at the current size.
	for i := range it.fields {
		spec := &it.fields[i]
		if _, exists := target.columns[spec.name]; exists {
			continue
		}
		def, err := p.resolveDefault(it, spec)
		if err != nil {
			return err
		}
		col := &column{
			name:   spec.name,
			typ:    spec.typ,
			unit:   spec.unit,
			def:    def,
			values: make([]Value, target.rowCount),
		}
		for row := range col.values {
			col.values[row] = def
		}
		target.columns[spec.name] = col
		target.order = append(target.order, spec.name)
		if p.cfg.trackPrecision && spec.typ.Scalar == TypeFloat && !spec.typ.Array {
			counts := make([]int, target.rowCount)
			for row := range counts {
				counts[row] = precisionUnknown
			}
			p.setPrecision(target.name, spec.name, counts)
		}
	}

	// The enumeration may have grown; resize every column, old and new,
	// before any value is overwritten.
	if grown := len(target.names); grown > target.rowCount {
		for _, col := range target.columns {
			for row := target.rowCount; row < grown; row++ {
				col.values = append(col.values, col.def)
			}
		}
		if fields, ok := p.store.precision[target.name]; ok {
			for field, counts := range fields {
				for row := target.rowCount; row < grown; row++ {
					counts = append(counts, precisionUnknown)
				}
				fields[field] = counts
			}
		}
		target.rowCount = grown
	}

	// Overwrite the target rows with the mod's cells. An explicitly empty
	// mod cell resets the slot to the field's recorded default.
	trackWiki := p.cfg.wikiLookup
	for modRow, name := range it.rowNames {
		row := target.index[name]
		for i := range it.fields {
			spec := &it.fields[i]
			col := target.columns[spec.name]
			if kindForType(col.typ) != kindForType(spec.typ) {
				return fmt.Errorf("%w: mod table %q redeclares field %q as %v (target has %v)",
					ErrSchema, it.name, spec.name, spec.typ, col.typ)
			}
			raw := it.cells[modRow][i]

			if trackWiki && spec.name == p.cfg.wikiField {
				// Empty wiki cells never clear an existing title.
				if !raw.isEmpty() && raw.n != 0 {
					v, err := p.res.resolve(raw, spec.typ, spec.unit, it.in)
					if err != nil {
						return fmt.Errorf("table %q: %w", it.name, err)
					}
					p.store.wiki[name] = v.Text()
					col.values[row] = v
				}
				continue
			}

			if raw.isEmpty() {
				col.values[row] = col.def
				p.overwritePrecision(target.name, spec, row, precisionUnknown)
				continue
			}
			v, err := p.res.resolve(raw, spec.typ, spec.unit, it.in)
			if err != nil {
				return fmt.Errorf("mod table %q, field %q: %w", it.name, spec.name, err)
			}
			col.values[row] = v
			if p.cfg.trackPrecision && spec.typ.Scalar == TypeFloat && !spec.typ.Array {
				count, err := rawFloatPrecision(raw)
				if err != nil {
					return fmt.Errorf("mod table %q, field %q: %w", it.name, spec.name, err)
				}
				p.overwritePrecision(target.name, spec, row, count)
			}
		}
	}
	return nil
}

// overwritePrecision updates one precision slot if the field is tracked.
func (p *postprocessor) overwritePrecision(table string, spec *fieldSpec, row, count int) {
	if !p.cfg.trackPrecision || spec.typ.Scalar != TypeFloat || spec.typ.Array {
		return
	}
	if fields, ok := p.store.precision[table]; ok {
		if counts, ok := fields[spec.name]; ok && row < len(counts) {
			counts[row] = count
		}
	}
}
