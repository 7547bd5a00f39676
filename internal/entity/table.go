package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Cell is one column/value pair of a row record.
type Cell struct {
	Column string
	Value  any // nil, int64, float64 or string
}

// Row is an ordered row record. It marshals to a JSON object whose keys keep
// the table's column order.
type Row []Cell

// Get returns the value stored under column.
func (r Row) Get(column string) (any, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	out := bytes.NewBufferString("{")
	for i, c := range r {
		if i > 0 {
			out.WriteByte(',')
		}
		buf.Reset()
		if err := enc.Encode(c.Column); err != nil {
			return nil, err
		}
		out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
		out.WriteByte(':')
		buf.Reset()
		if err := enc.Encode(c.Value); err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Column, err)
		}
		out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

func (r *Row) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("row: expected object, got %v", tok)
	}
	var row Row
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("row: expected string key, got %v", kt)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("row: column %q: %w", key, err)
		}
		row = append(row, Cell{Column: key, Value: fromJSONNumber(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = row
	return nil
}

func fromJSONNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Table is a structured table: its reconciled column names and row records.
// Only the rows appear in the persisted JSON.
type Table struct {
	Columns []string
	Rows    []Row
}

func (t Table) MarshalJSON() ([]byte, error) {
	rows := t.Rows
	if rows == nil {
		rows = []Row{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rows); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (t *Table) UnmarshalJSON(b []byte) error {
	var rows []Row
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}
	t.Rows = rows
	t.Columns = nil
	if len(rows) > 0 {
		for _, c := range rows[0] {
			t.Columns = append(t.Columns, c.Column)
		}
	}
	return nil
}
