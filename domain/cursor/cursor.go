// Package cursor implements the opaque pagination cursor (spec §3 "Cursor",
// §6 "Cursor encoding"), grounded on
// he-core/src/cursor_pagination.rs::Cursor (base64(JSON) of id/timestamp/
// direction), minus the SQL-fragment builder that file carries — cursor
// decoding here only has to identify "where to resume", not build SQL;
// package worldstore owns turning a Cursor into a storage-specific query.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"time"

	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

// Direction is the sort direction a cursor continues in.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Cursor is the decoded form of the opaque, client-supplied pagination token.
type Cursor struct {
	ID        *string    `json:"id,omitempty"`
	Timestamp *time.Time `json:"ts,omitempty"`
	Direction Direction  `json:"dir"`
}

// MaxPageSize is the page-size cap spec §4.2/§6 impose on query_paginated.
const MaxPageSize = 100

// Encode serializes c as an opaque base64(JSON) token.
func Encode(c Cursor) string {
	data, _ := json.Marshal(c) // Cursor is always JSON-marshalable; no error path.
	return base64.StdEncoding.EncodeToString(data)
}

// Decode parses an opaque token back into a Cursor. Any structurally invalid
// input yields an InvalidInput error (mapped by callers to "invalid cursor").
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{Direction: Asc}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, domainerrors.InvalidInput("cursor", "not valid base64")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, domainerrors.InvalidInput("cursor", "not valid json")
	}
	if c.Direction != Asc && c.Direction != Desc {
		if c.Direction == "" {
			c.Direction = Asc
		} else {
			return Cursor{}, domainerrors.InvalidInput("cursor", "direction must be asc or desc")
		}
	}
	return c, nil
}

// ClampLimit enforces the §4.2/§6 page-size cap, returning a value in [1, MaxPageSize].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return MaxPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// Page is a page of results plus the opaque continuation token (empty if no
// further page exists).
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasNext    bool
}
