package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is a single named value inside a Record.
type Field struct {
	Name  string
	Value any
}

// Record is one discrete log event: a mapping from field name to value that
// remembers insertion order. Values are opaque to the pipeline; only a handful
// of well-known fields (hostname, vdom, lb_partition, log_type) are read for
// output tagging, and even those are optional.
//
// A Record is owned by the producer until it is submitted. After that it must
// not be modified.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// RecordFromPairs builds a record from alternating name/value pairs.
// Non-string names and a trailing name without a value are skipped.
func RecordFromPairs(pairs ...any) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			continue
		}
		r.Set(name, pairs[i+1])
	}
	return r
}

// Set adds a field, or replaces the value of an existing field in place
// without changing its position. Returns the record for chaining.
func (r *Record) Set(name string, value any) *Record {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return r
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
	return r
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// StringField renders the named field as a string. Absent fields render as
// the empty string; non-string values render via fmt.Sprint.
func (r *Record) StringField(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Fields returns the fields in insertion order. The returned slice is the
// record's backing storage and must not be modified.
func (r *Record) Fields() []Field {
	return r.fields
}

// MarshalJSON encodes the record as a JSON object with keys in insertion
// order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, fmt.Errorf("marshal field name %q: %w", f.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", f.Name, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
