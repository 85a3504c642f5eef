package domain

import "strings"

// Key is the identity fingerprint of a normalized row: the email, else the
// phone digits, else name, address and postal code together.
func Key(row ImportRow) string {
	if row.Email != "" {
		return "email:" + row.Email
	}
	if row.Phone != "" {
		return "phone:" + row.Phone
	}
	return "fallback:" + strings.ToLower(row.Name) + "|" +
		strings.ToLower(row.AddressLine1) + "|" +
		strings.ToLower(row.PostalCode)
}

// Classify flags rows whose key matches an existing client or an earlier row
// of the same batch. The first occurrence in the batch stays importable.
func Classify(rows, existing []ImportRow) []Classified {
	return ClassifyValidated(rows, existing, nil)
}

// ClassifyValidated runs invalid before the duplicate checks: a row for which
// invalid returns a reason is marked invalid and does not claim its key, so
// a later valid row with the same key stays importable.
func ClassifyValidated(rows, existing []ImportRow, invalid func(ImportRow) string) []Classified {
	known := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		known[Key(row)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([]Classified, 0, len(rows))
	for _, row := range rows {
		c := Classified{Row: row, Key: Key(row), Status: StatusImportable}
		if invalid != nil {
			if reason := invalid(row); reason != "" {
				c.Status = StatusInvalid
				c.Reason = reason
				out = append(out, c)
				continue
			}
		}
		if _, ok := known[c.Key]; ok {
			c.Status = StatusDuplicate
			c.Reason = ReasonExistingClient
		} else if _, ok := seen[c.Key]; ok {
			c.Status = StatusDuplicate
			c.Reason = ReasonRepeatedInFile
		}
		seen[c.Key] = struct{}{}
		out = append(out, c)
	}
	return out
}
