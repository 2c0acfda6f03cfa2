package fetcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roll.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeCSV(t, "ADDRESS,PRECINCT,BALLOT STYLE\n123 Main St,12,BS1\n456 Oak Ave,14,BS2\n")

	tbl, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ADDRESS", "PRECINCT", "BALLOT STYLE"}, tbl.Headers)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "123 Main St", tbl.Get(0, 0))
	assert.Equal(t, "BS2", tbl.Get(1, 2))
}

func TestReadCSVLowercaseHeaders(t *testing.T) {
	path := writeCSV(t, "address,precinct\n1 A St,9\n")

	tbl, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ADDRESS", "PRECINCT"}, tbl.Headers)
	assert.True(t, tbl.HasCol("Address"))
}

func TestReadCSVRaggedRows(t *testing.T) {
	path := writeCSV(t, "A,B,C\n1,2\n1,2,3,4\n")

	tbl, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "", tbl.Get(0, 2))
	assert.Equal(t, "3", tbl.Get(1, 2))
}

func TestReadCSVEmptyFile(t *testing.T) {
	path := writeCSV(t, "")
	_, err := ReadCSV(path)
	assert.Error(t, err)
}

func TestColAliases(t *testing.T) {
	tbl := &Table{Headers: []string{"VOTERID", "ADDRESS"}}
	assert.Equal(t, 0, tbl.Col("VUID", "VOTERID", "ID"))
	assert.Equal(t, 1, tbl.Col("ADDRESS", "STREET"))
	assert.Equal(t, -1, tbl.Col("CERT"))
}

func TestGetOutOfRange(t *testing.T) {
	tbl := &Table{Headers: []string{"A"}, Rows: [][]string{{"x"}}}
	assert.Equal(t, "", tbl.Get(0, -1))
	assert.Equal(t, "", tbl.Get(5, 0))
	assert.Equal(t, "x", tbl.Get(0, 0))
}

func TestReadFileDispatch(t *testing.T) {
	path := writeCSV(t, "A\n1\n")
	tbl, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	_, err = ReadFile("roll.txt")
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sheet1")
	require.NoError(t, err)

	header := sheet.AddRow()
	header.AddCell().SetString("ADDRESS")
	header.AddCell().SetString("VUID")
	row := sheet.AddRow()
	row.AddCell().SetString("123 Main St")
	row.AddCell().SetString("100001")

	path := filepath.Join(t.TempDir(), "roll.xlsx")
	require.NoError(t, file.Save(path))

	tbl, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ADDRESS", "VUID"}, tbl.Headers)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "123 Main St", tbl.Get(0, tbl.Col("ADDRESS")))
	assert.Equal(t, "100001", tbl.Get(0, tbl.Col("VUID")))
}

func TestReadXLSXMissingSheet(t *testing.T) {
	file := xlsx.NewFile()
	_, err := file.AddSheet("Only")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "roll.xlsx")
	require.NoError(t, file.Save(path))

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	assert.Error(t, err)
}
