package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

// Pagination is the query-string shape shared by list endpoints. Lists are
// ordered newest first and paged by snowflake id.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size" validate:"omitempty,gte=1,lte=250"`
}

// Limit clamps PageSize into [1, MaxPageSize], defaulting when unset.
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Cursor marks the last row of a page. ID is the row's snowflake id.
type Cursor struct {
	ID int64 `json:"id,string"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) string {
	// Marshalling a struct with one int64 field cannot fail.
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(token string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidPageToken
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.ID <= 0 {
		return Cursor{}, ErrInvalidPageToken
	}
	return c, nil
}

// Paginate trims a limit+1 result set down to limit rows and reports whether
// another page follows.
func Paginate[T any](rows []*T, limit int, idOf func(*T) int64) ([]*T, PageInfo) {
	if limit <= 0 || len(rows) <= limit {
		return rows, PageInfo{}
	}
	rows = rows[:limit]
	return rows, PageInfo{
		HasMore:       true,
		NextPageToken: EncodeCursor(Cursor{ID: idOf(rows[len(rows)-1])}),
	}
}
