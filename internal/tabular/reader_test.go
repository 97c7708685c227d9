package tabular

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffA,B\n1,x\n2,y\n,\n3,z\n"

	frame, err := Read("upload.CSV", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, frame.Columns)
	assert.Equal(t, [][]string{{"1", "x"}, {"2", "y"}, {"3", "z"}}, frame.Rows)
	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, []string{"x", "y", "z"}, frame.Column(1))
}

func TestReadRejectsUnsupportedExtension(t *testing.T) {
	_, err := Read("notes.txt", strings.NewReader("A\n1\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = Read("noextension", strings.NewReader("A\n1\n"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestReadCSVRejectsBadHeaders(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMalformedFile)

	_, err = ReadCSV(strings.NewReader("A,a b,a_b\n1,2,3\n"))
	assert.ErrorContains(t, err, "duplicate column")

	_, err = ReadCSV(strings.NewReader("A, \n1,2\n"))
	assert.ErrorContains(t, err, "has no name")
}

func TestReadCSVRejectsRaggedRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("A,B\n1,2\n3\n"))
	assert.ErrorIs(t, err, ErrMalformedFile)
}

func TestReadXLSX(t *testing.T) {
	book := xlsx.NewFile()
	sheet, err := book.AddSheet("data")
	require.NoError(t, err)

	for _, values := range [][]string{{"Name", "Count", ""}, {"alpha", "1"}, {"", ""}, {"beta", "2"}} {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	frame, err := Read("book.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Count"}, frame.Columns)
	assert.Equal(t, [][]string{{"alpha", "1"}, {"beta", "2"}}, frame.Rows)
}

func TestReadXLSXDateCells(t *testing.T) {
	book := xlsx.NewFile()
	sheet, err := book.AddSheet("data")
	require.NoError(t, err)

	header := sheet.AddRow()
	header.AddCell().SetString("born")
	header.AddCell().SetString("seen")
	row := sheet.AddRow()
	row.AddCell().SetDate(time.Date(1901, 2, 3, 0, 0, 0, 0, time.UTC))
	row.AddCell().SetDateTime(time.Date(2020, 5, 6, 7, 8, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	frame, err := ReadXLSX(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1901-02-03", "2020-05-06 07:08:00"}}, frame.Rows)
}

func TestCSVRoundTrip(t *testing.T) {
	frame := &Frame{Columns: []string{"A", "B"}, Rows: [][]string{{"1", "x, y"}, {"", "z"}}}

	data, err := EncodeCSV(frame)
	require.NoError(t, err)

	parsed, err := ReadCSV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, frame, parsed)
}

func TestNormalizeColumnName(t *testing.T) {
	assert.Equal(t, "first_name", NormalizeColumnName(" first name "))
	assert.Equal(t, "id_original", NormalizeColumnName("ID"))
	assert.Equal(t, "LATITUDE", NormalizeColumnName("LATITUDE"))
	assert.Equal(t, "is_alive_", NormalizeColumnName("is alive?"))

	frame := &Frame{Columns: []string{"a b", "id"}}
	frame.NormalizeColumns()
	assert.Equal(t, []string{"a_b", "id_original"}, frame.Columns)
	assert.Equal(t, 1, frame.Index("id_original"))
	assert.Equal(t, -1, frame.Index("id"))
}

func TestSample(t *testing.T) {
	frame := &Frame{Columns: []string{"A"}, Rows: [][]string{{"1"}, {"2"}, {"3"}}}

	assert.Equal(t, 2, frame.Sample(2).Len())
	assert.Equal(t, 3, frame.Sample(10).Len())
}

func TestIsNull(t *testing.T) {
	for _, v := range []string{"", "  ", "NaN", "null", "N/A", "None"} {
		assert.True(t, IsNull(v), v)
	}
	for _, v := range []string{"0", "x", "nullable"} {
		assert.False(t, IsNull(v), v)
	}
}
