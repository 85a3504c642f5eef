package domain

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSVWithBOMAndAliases(t *testing.T) {
	input := "\ufeffClient Name,E-mail,Mobile,Service Address,City,State,ZIP Code,Ignored\n" +
		"Ann Smith,ann@example.com,(555) 010-2000,12 Oak St,Springfield,IL,62701,x\n" +
		"\"Bob \"The Roofer\" Jones\",bob@example.com,,,,,\n"

	rows, err := ParseFile("clients.CSV", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, RawRow{
		Name:         "Ann Smith",
		Email:        "ann@example.com",
		Phone:        "(555) 010-2000",
		AddressLine1: "12 Oak St",
		City:         "Springfield",
		State:        "IL",
		PostalCode:   "62701",
	}, rows[0])
	assert.Equal(t, "bob@example.com", rows[1].Email)
	assert.Contains(t, rows[1].Name, "Roofer")
}

func TestParseXLSXFirstSheet(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetRow(sheet, "A1", &[]any{"Full Name", "Email", "Phone Number", "Postal Code"}))
	require.NoError(t, book.SetSheetRow(sheet, "A2", &[]any{"Ann Smith", "ann@example.com", "5550102000", "62701"}))
	require.NoError(t, book.SetSheetRow(sheet, "A3", &[]any{"Cara", "", "", ""}))
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, book.Close())

	rows, err := ParseFile("clients.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ann Smith", rows[0].Name)
	assert.Equal(t, "5550102000", rows[0].Phone)
	assert.Equal(t, "62701", rows[0].PostalCode)
	assert.Equal(t, "Cara", rows[1].Name)
}

func TestParseRejectsUnknownExtension(t *testing.T) {
	_, err := ParseFile("clients.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	_, err = ParseFile("clients", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestParseMalformedXLSX(t *testing.T) {
	_, err := ParseFile("clients.xlsx", strings.NewReader("not a zip"))
	assert.ErrorIs(t, err, ErrMalformedFile)
}

func TestParseEmptyCSV(t *testing.T) {
	rows, err := ParseFile("clients.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
