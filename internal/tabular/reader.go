package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/tealeg/xlsx"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrMalformedFile       = errors.New("malformed file")
)

const utf8BOM = "\ufeff"

// Date cells are rendered in ISO form instead of the sheet's display format.
const (
	xlsxDateLayout     = "2006-01-02"
	xlsxDateTimeLayout = "2006-01-02 15:04:05"
)

// Read parses an uploaded file, picking the parser from the file extension.
func Read(filename string, r io.Reader) (*Frame, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read excel upload: %w", err)
		}
		return ReadXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ext)
	}
}

func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse csv: %v", ErrMalformedFile, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing csv header line", ErrMalformedFile)
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	frame := &Frame{Columns: header, Rows: make([][]string, 0, len(records)-1)}
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		frame.Rows = append(frame.Rows, record)
	}
	return frame, nil
}

// ReadXLSX reads the first sheet of a workbook. The first row is the header.
func ReadXLSX(data []byte) (*Frame, error) {
	book, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse excel workbook: %v", ErrMalformedFile, err)
	}
	if len(book.Sheets) == 0 || len(book.Sheets[0].Rows) == 0 {
		return nil, fmt.Errorf("%w: first sheet of the workbook is empty", ErrMalformedFile)
	}

	sheet := book.Sheets[0]
	header := cellStrings(sheet.Rows[0], 0, book.Date1904)
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	frame := &Frame{Columns: header}
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		values := cellStrings(row, len(header), book.Date1904)
		if isBlank(values) {
			continue
		}
		frame.Rows = append(frame.Rows, values)
	}
	return frame, nil
}

// cellStrings flattens a sheet row, padded or cut to width when width > 0.
func cellStrings(row *xlsx.Row, width int, date1904 bool) []string {
	n := len(row.Cells)
	if width > 0 {
		n = width
	}
	values := make([]string, n)
	for i := 0; i < n && i < len(row.Cells); i++ {
		if row.Cells[i] != nil {
			values[i] = cellString(row.Cells[i], date1904)
		}
	}
	return values
}

func cellString(cell *xlsx.Cell, date1904 bool) string {
	if cell.Type() == xlsx.CellTypeNumeric && cell.IsTime() {
		if t, err := cell.GetTime(date1904); err == nil {
			// Excel serials are fractional days.
			t = t.Round(time.Second)
			if t.Equal(t.Truncate(24 * time.Hour)) {
				return t.Format(xlsxDateLayout)
			}
			return t.Format(xlsxDateTimeLayout)
		}
	}
	return cell.String()
}

// WriteCSV stores a frame as CSV; staged uploads are always kept in this form.
func WriteCSV(w io.Writer, f *Frame) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := writer.WriteAll(f.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// EncodeCSV is WriteCSV into a byte slice.
func EncodeCSV(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validateHeader(header []string) error {
	if len(header) == 0 {
		return fmt.Errorf("%w: header line is empty", ErrMalformedFile)
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := NormalizeColumnName(h)
		if name == "" {
			return fmt.Errorf("%w: column %d of the header has no name", ErrMalformedFile, i+1)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate column %q in header", ErrMalformedFile, name)
		}
		seen[name] = true
	}
	return nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
