package domain

import (
	"strings"
	"unicode"
)

// Normalize trims every field, lowercases the email and keeps only the digits
// of the phone number.
func Normalize(raw RawRow) ImportRow {
	return ImportRow{
		Name:         strings.TrimSpace(raw.Name),
		Email:        strings.ToLower(strings.TrimSpace(raw.Email)),
		Phone:        digitsOnly(raw.Phone),
		AddressLine1: strings.TrimSpace(raw.AddressLine1),
		City:         strings.TrimSpace(raw.City),
		State:        strings.TrimSpace(raw.State),
		PostalCode:   strings.TrimSpace(raw.PostalCode),
		Notes:        strings.TrimSpace(raw.Notes),
	}
}

// Renormalize runs an already normalized row through Normalize again, for
// rows that come back from a client.
func Renormalize(row ImportRow) ImportRow {
	return Normalize(RawRow(row))
}

// Usable reports whether the row identifies anyone at all.
func (r ImportRow) Usable() bool {
	return r.Name != "" || r.Email != "" || r.Phone != ""
}

// NormalizeAll drops rows that carry no name, email or phone.
func NormalizeAll(raws []RawRow) []ImportRow {
	rows := make([]ImportRow, 0, len(raws))
	for _, raw := range raws {
		row := Normalize(raw)
		if !row.Usable() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
