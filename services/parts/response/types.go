// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package response defines the canonical response variants and the
// normalizers that map raw gateway payloads onto them.
//
// Every operation's heterogeneous payload becomes exactly one of four
// variants: Table, Detail, Text, or Error. Callers branch on the Kind tag,
// never on payload shape. Missing fields always render as an explicit
// placeholder so column counts stay stable across rows.
package response

// Placeholder renders in place of any missing field value.
const Placeholder = "N/A"

// Kind tags the canonical response variant.
type Kind string

const (
	KindTable  Kind = "table"
	KindDetail Kind = "detail"
	KindText   Kind = "text"
	KindError  Kind = "error"
)

// Response is the canonical tagged variant. Exactly one payload field is
// non-nil, matching Kind.
type Response struct {
	Kind   Kind       `json:"kind"`
	Table  *Table     `json:"table,omitempty"`
	Detail *Detail    `json:"detail,omitempty"`
	Text   *Text      `json:"text,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// Table is a titled list of uniform rows.
//
// Description:
//
//	Columns fixes both the set and the order of keys present in every
//	row. Rows with no source value for a column carry the Placeholder.
//	An empty Rows list with a descriptive Title is the well-formed way to
//	report "no records found".
type Table struct {
	Title   string              `json:"title"`
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// Detail is a titled sequence of named sections.
type Detail struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section is one named group of field pairs. Fields keep their order, which
// Go maps would not.
type Section struct {
	Heading string  `json:"heading"`
	Fields  []Field `json:"fields"`
}

// Field is one labeled value inside a Section.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Text is a plain prose response.
type Text struct {
	Content string `json:"content"`
}

// ErrorBody reports a failed operation.
type ErrorBody struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// NewTable builds a Table response.
func NewTable(title string, columns []string, rows []map[string]string) Response {
	return Response{Kind: KindTable, Table: &Table{Title: title, Columns: columns, Rows: rows}}
}

// NewDetail builds a Detail response.
func NewDetail(title string, sections []Section) Response {
	return Response{Kind: KindDetail, Detail: &Detail{Title: title, Sections: sections}}
}

// NewText builds a Text response.
func NewText(content string) Response {
	return Response{Kind: KindText, Text: &Text{Content: content}}
}

// NewError builds an Error response.
func NewError(message, kind string) Response {
	return Response{Kind: KindError, Error: &ErrorBody{Message: message, Kind: kind}}
}
