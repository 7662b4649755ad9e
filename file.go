package tsvdb

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
)

// FileType represents supported source file types including compression
// variants.
type FileType int

const (
	// FileTypeTSV represents a plain tab-delimited source file.
	FileTypeTSV FileType = iota
	// FileTypeTSVGZ represents a gzip-compressed TSV file.
	FileTypeTSVGZ
	// FileTypeTSVBZ2 represents a bzip2-compressed TSV file.
	FileTypeTSVBZ2
	// FileTypeTSVXZ represents an xz-compressed TSV file.
	FileTypeTSVXZ
	// FileTypeTSVZSTD represents a zstd-compressed TSV file.
	FileTypeTSVZSTD
	// FileTypeXLSX represents an Excel workbook; each sheet is one source
	// table.
	FileTypeXLSX
	// FileTypeUnsupported represents an unsupported file type.
	FileTypeUnsupported
)

// File extensions.
const (
	extTSV  = ".tsv"
	extXLSX = ".xlsx"
	extGZ   = ".gz"
	extBZ2  = ".bz2"
	extXZ   = ".xz"
	extZSTD = ".zst"
)

// source is one tokenized source table: the table name plus the raw cell
// matrix, rows in file order, cells split on tab.
type source struct {
	name string
	rows [][]string
}

// file represents a source file on disk.
type file struct {
	path     string
	fileType FileType
}

// newFile creates a file with its type detected from the path.
func newFile(path string) *file {
	return &file{path: path, fileType: detectFileType(path)}
}

// detectFileType detects the file type from the extension, considering
// compression suffixes.
func detectFileType(path string) FileType {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, extTSV):
		return FileTypeTSV
	case strings.HasSuffix(lower, extTSV+extGZ):
		return FileTypeTSVGZ
	case strings.HasSuffix(lower, extTSV+extBZ2):
		return FileTypeTSVBZ2
	case strings.HasSuffix(lower, extTSV+extXZ):
		return FileTypeTSVXZ
	case strings.HasSuffix(lower, extTSV+extZSTD):
		return FileTypeTSVZSTD
	case strings.HasSuffix(lower, extXLSX):
		return FileTypeXLSX
	default:
		return FileTypeUnsupported
	}
}

// isSupportedFile checks whether the file has a supported extension.
func isSupportedFile(fileName string) bool {
	return detectFileType(fileName) != FileTypeUnsupported
}

// supportedFileExtPatterns returns glob patterns for all supported source
// files.
func supportedFileExtPatterns() []string {
	compressionExts := []string{"", extGZ, extBZ2, extXZ, extZSTD}
	patterns := make([]string, 0, len(compressionExts)+1)
	for _, compressionExt := range compressionExts {
		patterns = append(patterns, "*"+extTSV+compressionExt)
	}
	return append(patterns, "*"+extXLSX)
}

// openReader opens the file and returns a reader that handles decompression.
func (f *file) openReader() (io.Reader, func() error, error) {
	osFile, err := os.Open(f.path)
	if err != nil {
		return nil, nil, err
	}

	var reader io.Reader = osFile
	closer := osFile.Close

	switch f.fileType {
	case FileTypeTSVGZ:
		gzReader, err := gzip.NewReader(osFile)
		if err != nil {
			_ = osFile.Close()
			return nil, nil, err
		}
		reader = gzReader
		closer = func() error {
			_ = gzReader.Close()
			return osFile.Close()
		}
	case FileTypeTSVBZ2:
		reader = bzip2.NewReader(osFile)
	case FileTypeTSVXZ:
		xzReader, err := xz.NewReader(osFile)
		if err != nil {
			_ = osFile.Close()
			return nil, nil, err
		}
		reader = xzReader
	case FileTypeTSVZSTD:
		decoder, err := zstd.NewReader(osFile)
		if err != nil {
			_ = osFile.Close()
			return nil, nil, err
		}
		reader = decoder
		closer = func() error {
			decoder.Close()
			return osFile.Close()
		}
	}

	return reader, closer, nil
}

// readSources tokenizes the file into one or more source tables. A TSV file
// yields exactly one source named after the file; an Excel workbook yields
// one source per sheet named after the sheet.
func (f *file) readSources() ([]source, error) {
	switch f.fileType {
	case FileTypeTSV, FileTypeTSVGZ, FileTypeTSVBZ2, FileTypeTSVXZ, FileTypeTSVZSTD:
		reader, closer, err := f.openReader()
		if err != nil {
			return nil, err
		}
		defer func() { _ = closer() }()

		rows, err := readTSVRows(reader)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.path, err)
		}
		return []source{{name: tableNameFromPath(f.path), rows: rows}}, nil
	case FileTypeXLSX:
		return f.readXLSXSources()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.path)
	}
}

// readTSVRows splits a TSV stream into a raw cell matrix. Quote stripping
// and comment handling are the preprocessor's business, not the tokenizer's.
func readTSVRows(reader io.Reader) ([][]string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, ErrEmptyData
	}

	lines := strings.Split(string(content), "\n")
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		rows = append(rows, strings.Split(line, cellDelimiter))
	}
	if len(rows) == 0 {
		return nil, ErrEmptyData
	}
	return rows, nil
}

// normalizeSheetRows drops empty sheet rows and pads the rest to the
// sheet's width. excelize omits trailing empty cells, so without the
// padding a sheet row ending in blanks would fail the preprocessor's
// column-count check.
func normalizeSheetRows(rows [][]string) [][]string {
	maxWidth := 0
	for _, row := range rows {
		if len(row) > maxWidth {
			maxWidth = len(row)
		}
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		for len(row) < maxWidth {
			row = append(row, "")
		}
		out = append(out, row)
	}
	return out
}

// readXLSXSources reads every sheet of a workbook as one source table.
func (f *file) readXLSXSources() ([]source, error) {
	xlsxFile, err := excelize.OpenFile(f.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = xlsxFile.Close() }()

	sheetNames := xlsxFile.GetSheetList()
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("no sheets found in workbook: %s", f.path)
	}

	sources := make([]source, 0, len(sheetNames))
	for _, sheetName := range sheetNames {
		rows, err := xlsxFile.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
		}
		cleaned := normalizeSheetRows(rows)
		if len(cleaned) == 0 {
			continue
		}
		sources = append(sources, source{name: sheetName, rows: cleaned})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyData, f.path)
	}
	return sources, nil
}

// readSourcesFromReader tokenizes TSV data from an arbitrary reader, used by
// the builder's reader inputs. XLSX readers are buffered first because
// excelize needs random access.
func readSourcesFromReader(reader io.Reader, tableName string, fileType FileType) ([]source, error) {
	switch fileType {
	case FileTypeTSV:
		rows, err := readTSVRows(reader)
		if err != nil {
			return nil, err
		}
		return []source{{name: tableName, rows: rows}}, nil
	case FileTypeTSVGZ:
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gzReader.Close() }()
		rows, err := readTSVRows(gzReader)
		if err != nil {
			return nil, err
		}
		return []source{{name: tableName, rows: rows}}, nil
	case FileTypeTSVBZ2:
		rows, err := readTSVRows(bzip2.NewReader(reader))
		if err != nil {
			return nil, err
		}
		return []source{{name: tableName, rows: rows}}, nil
	case FileTypeTSVXZ:
		xzReader, err := xz.NewReader(reader)
		if err != nil {
			return nil, err
		}
		rows, err := readTSVRows(xzReader)
		if err != nil {
			return nil, err
		}
		return []source{{name: tableName, rows: rows}}, nil
	case FileTypeTSVZSTD:
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return nil, err
		}
		defer decoder.Close()
		rows, err := readTSVRows(decoder)
		if err != nil {
			return nil, err
		}
		return []source{{name: tableName, rows: rows}}, nil
	case FileTypeXLSX:
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
		xlsxFile, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = xlsxFile.Close() }()

		sheetNames := xlsxFile.GetSheetList()
		sources := make([]source, 0, len(sheetNames))
		for _, sheetName := range sheetNames {
			rows, err := xlsxFile.GetRows(sheetName)
			if err != nil {
				return nil, err
			}
			cleaned := normalizeSheetRows(rows)
			if len(cleaned) == 0 {
				continue
			}
			sources = append(sources, source{name: sheetName, rows: cleaned})
		}
		if len(sources) == 0 {
			return nil, ErrEmptyData
		}
		return sources, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
