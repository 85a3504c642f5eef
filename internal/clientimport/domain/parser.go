package domain

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type column int

const (
	colName column = iota
	colEmail
	colPhone
	colAddress
	colCity
	colState
	colPostal
	colNotes
)

var headerAliases = map[string]column{
	"name":            colName,
	"client name":     colName,
	"full name":       colName,
	"customer name":   colName,
	"email":           colEmail,
	"e-mail":          colEmail,
	"email address":   colEmail,
	"phone":           colPhone,
	"phone number":    colPhone,
	"mobile":          colPhone,
	"address":         colAddress,
	"service address": colAddress,
	"address line 1":  colAddress,
	"city":            colCity,
	"state":           colState,
	"zip":             colPostal,
	"postal code":     colPostal,
	"zip code":        colPostal,
	"notes":           colNotes,
}

// ParseFile reads a .csv or .xlsx upload. The first row is the header; columns
// that match no known header are ignored.
func ParseFile(filename string, r io.Reader) ([]RawRow, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".csv":
		return parseCSV(r)
	case ".xlsx":
		return parseXLSX(r)
	default:
		return nil, ErrUnsupportedFileType
	}
}

func parseCSV(r io.Reader) ([]RawRow, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	reader := csv.NewReader(br)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
		}
		records = append(records, record)
		if len(records) > MaxRows+1 {
			return nil, ErrTooManyRows
		}
	}
	return recordsToRows(records)
}

func parseXLSX(r io.Reader) ([]RawRow, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	records, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	if len(records) > MaxRows+1 {
		return nil, ErrTooManyRows
	}
	return recordsToRows(records)
}

func recordsToRows(records [][]string) ([]RawRow, error) {
	if len(records) == 0 {
		return nil, nil
	}

	index := make(map[column]int)
	for i, header := range records[0] {
		col, ok := headerAliases[normalizeHeader(header)]
		if !ok {
			continue
		}
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}

	rows := make([]RawRow, 0, len(records)-1)
	for _, record := range records[1:] {
		cell := func(col column) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		rows = append(rows, RawRow{
			Name:         cell(colName),
			Email:        cell(colEmail),
			Phone:        cell(colPhone),
			AddressLine1: cell(colAddress),
			City:         cell(colCity),
			State:        cell(colState),
			PostalCode:   cell(colPostal),
			Notes:        cell(colNotes),
		})
	}
	return rows, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, string(utf8BOM))
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer("_", " ", " ", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}
