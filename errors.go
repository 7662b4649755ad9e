package tsvdb

import "errors"

// Sentinel errors. Schema violations abort the whole postprocess call; there
// is no partial-failure mode, so a store returned alongside a non-nil error
// must not be used.
var (
	// ErrSchema indicates a malformed source table (inconsistent column
	// counts, non-uniform row names, duplicate field names, and so on).
	ErrSchema = errors.New("tsvdb: schema error")

	// ErrDirective indicates an unknown directive, a directive that is
	// illegal for the table format, or a missing required argument.
	ErrDirective = errors.New("tsvdb: invalid directive")

	// ErrInvalidType indicates an unknown Type keyword or a nested ARRAY.
	ErrInvalidType = errors.New("tsvdb: invalid field type")

	// ErrMalformedFloat indicates a FLOAT cell that cannot be parsed.
	ErrMalformedFloat = errors.New("tsvdb: malformed float")

	// ErrDuplicateName indicates an entity name declared by more than one
	// table or predefined enumeration.
	ErrDuplicateName = errors.New("tsvdb: entity names must be globally unique")

	// ErrUnknownEntity indicates a reference to an entity name that no
	// table or predefined enumeration declares.
	ErrUnknownEntity = errors.New("tsvdb: unknown entity name")

	// ErrTableNotFound indicates a read against a table that does not exist.
	ErrTableNotFound = errors.New("tsvdb: table not found")

	// ErrTypeMismatch indicates a typed getter applied to a field of a
	// different type.
	ErrTypeMismatch = errors.New("tsvdb: field type mismatch")

	// ErrRowOutOfRange indicates a row index outside the table.
	ErrRowOutOfRange = errors.New("tsvdb: row index out of range")

	// ErrEmptyData indicates a source with no content rows.
	ErrEmptyData = errors.New("tsvdb: empty data source")

	// ErrUnsupportedFormat indicates an unsupported source file extension.
	ErrUnsupportedFormat = errors.New("tsvdb: unsupported file format")
)
