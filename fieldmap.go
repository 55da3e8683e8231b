package nitfmeta

import (
	"slices"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
)

// Field is a decoded field tag and its value.
type Field struct {
	Tag   string
	Value string
}

// FieldMap holds the decoded fields of one header or subheader.
// Fields are kept in the order they appear in the file.
// A FieldMap never holds a blank value: fields that are not
// specified in the file are absent.
type FieldMap struct {
	m *orderedmap.OrderedMap[string, string]
}

func newFieldMap() *FieldMap {
	return &FieldMap{m: orderedmap.NewOrderedMap[string, string]()}
}

// set stores value under tag unless value is blank.
// It reports whether tag already had a value.
func (f *FieldMap) set(tag, value string) (replaced bool) {
	if strings.TrimSpace(value) == "" {
		return false
	}
	return !f.m.Set(tag, value)
}

// Get returns the value for tag.
func (f *FieldMap) Get(tag string) (string, bool) {
	if f == nil {
		return "", false
	}
	return f.m.Get(tag)
}

// Has reports whether tag is present.
func (f *FieldMap) Has(tag string) bool {
	if f == nil {
		return false
	}
	return f.m.Has(tag)
}

// Len returns the number of fields.
func (f *FieldMap) Len() int {
	if f == nil {
		return 0
	}
	return f.m.Len()
}

// Keys returns the field tags in file order.
func (f *FieldMap) Keys() []string {
	if f == nil {
		return nil
	}
	return slices.Collect(f.m.Keys())
}

// SortedKeys returns the field tags in lexical order.
func (f *FieldMap) SortedKeys() []string {
	keys := f.Keys()
	slices.Sort(keys)
	return keys
}

// Fields returns all fields in file order.
func (f *FieldMap) Fields() []Field {
	if f == nil {
		return nil
	}
	fields := make([]Field, 0, f.m.Len())
	for k, v := range f.m.AllFromFront() {
		fields = append(fields, Field{Tag: k, Value: v})
	}
	return fields
}

// Map returns a copy of the fields as a plain map.
func (f *FieldMap) Map() map[string]string {
	m := make(map[string]string, f.Len())
	for _, fi := range f.Fields() {
		m[fi.Tag] = fi.Value
	}
	return m
}
