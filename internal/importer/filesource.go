package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for file extensions the tabular
	// source cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnrecognizedReport is returned when the header row does not look
	// like a Harvest invoice report. Nothing is imported in that case.
	ErrUnrecognizedReport = errors.New("file does not look like a Harvest invoice report (expected columns: Client, ID, Issue Date, Subtotal, ...)")

	// ErrEmptyFile is returned when the file parses but holds no rows.
	ErrEmptyFile = errors.New("file is empty or could not be parsed")
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Columns a Harvest invoice report must carry for the import to proceed.
var requiredColumns = []string{"Client", "ID", "Issue Date"}

// FileSource reads a Harvest "All invoices" report export (.csv or .xlsx)
// from disk. Report rows carry no authoritative status and no per-line-item
// breakdown, so the importer derives status and synthesizes a single item.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return "file " + s.Path
}

func (s *FileSource) Rows(ctx context.Context) ([]Row, error) {
	payload, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return ParseReport(s.Path, payload)
}

// BytesSource is an in-memory report, e.g. an uploaded file. The file name
// only selects the parser by extension.
type BytesSource struct {
	FileName string
	Payload  []byte
}

func NewBytesSource(fileName string, payload []byte) *BytesSource {
	return &BytesSource{FileName: fileName, Payload: payload}
}

func (s *BytesSource) Name() string {
	return "upload " + s.FileName
}

func (s *BytesSource) Rows(ctx context.Context) ([]Row, error) {
	return ParseReport(s.FileName, s.Payload)
}

// ParseReport parses a Harvest invoice report and normalizes each record.
// The shape check is deliberately up front: a file without the required
// columns aborts the run before any write happens.
func ParseReport(fileName string, payload []byte) ([]Row, error) {
	records, err := parseTable(fileName, payload)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, ErrEmptyFile
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, ErrUnrecognizedReport
		}
	}

	field := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		rows = append(rows, Row{
			Number:         field(record, "ID"),
			ClientName:     field(record, "Client"),
			ClientAddress:  field(record, "Client Address"),
			ClientCurrency: field(record, "Currency"),
			Subject:        field(record, "Subject"),
			IssueDate:      field(record, "Issue Date"),
			Notes:          field(record, "PO Number"),
			Subtotal:       ParseAmount(field(record, "Subtotal")),
			Tax:            ParseAmount(field(record, "Tax")),
			Balance:        ParseAmount(field(record, "Balance")),
			PaidAmount:     ParseAmount(field(record, "Paid Amount")),
		})
	}

	return rows, nil
}

func parseTable(fileName string, payload []byte) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseXLSX(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func parseXLSX(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

// FindExportFile resolves which report to import: an explicit path wins,
// otherwise the first file in dir whose name contains "harvest" (case
// insensitive) and ends in .csv, otherwise dir/invoices.csv.
func FindExportFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			name := strings.ToLower(entry.Name())
			if !entry.IsDir() && strings.Contains(name, "harvest") && strings.HasSuffix(name, ".csv") {
				return filepath.Join(dir, entry.Name())
			}
		}
	}
	return filepath.Join(dir, "invoices.csv")
}
