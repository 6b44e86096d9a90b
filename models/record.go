package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Record maps a column header to the cell text of one table row.
// Headers keep the order in which they appeared in the table, which is
// also the order used when the record is serialized.
type Record struct {
	cells *orderedmap.OrderedMap[string, string]
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{cells: orderedmap.New[string, string]()}
}

// ZipRecord pairs headers with values position by position. Extra entries
// of the longer slice are dropped.
func ZipRecord(headers, values []string) *Record {
	n := min(len(headers), len(values))
	r := &Record{cells: orderedmap.New[string, string](orderedmap.WithCapacity[string, string](n))}
	for i := 0; i < n; i++ {
		r.cells.Set(headers[i], values[i])
	}
	return r
}

func (r *Record) init() {
	if r.cells == nil {
		r.cells = orderedmap.New[string, string]()
	}
}

// Set stores value under header. An existing header keeps its position.
func (r *Record) Set(header, value string) {
	r.init()
	r.cells.Set(header, value)
}

// Get returns the cell stored under header.
func (r *Record) Get(header string) (string, bool) {
	if r == nil || r.cells == nil {
		return "", false
	}
	return r.cells.Get(header)
}

// Len returns the number of cells.
func (r *Record) Len() int {
	if r == nil || r.cells == nil {
		return 0
	}
	return r.cells.Len()
}

// Headers returns the headers in table order.
func (r *Record) Headers() []string {
	headers := make([]string, 0, r.Len())
	if r.Len() == 0 {
		return headers
	}
	for pair := r.cells.Oldest(); pair != nil; pair = pair.Next() {
		headers = append(headers, pair.Key)
	}
	return headers
}

// Values returns the cell values in table order.
func (r *Record) Values() []string {
	values := make([]string, 0, r.Len())
	if r.Len() == 0 {
		return values
	}
	for pair := r.cells.Oldest(); pair != nil; pair = pair.Next() {
		values = append(values, pair.Value)
	}
	return values
}

// ToMap copies the record into a plain map.
func (r *Record) ToMap() map[string]string {
	m := make(map[string]string, r.Len())
	if r.Len() == 0 {
		return m
	}
	for pair := r.cells.Oldest(); pair != nil; pair = pair.Next() {
		m[pair.Key] = pair.Value
	}
	return m
}

func (r *Record) MarshalJSON() ([]byte, error) {
	r.init()
	return encodeObject(r.cells)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	r.cells = orderedmap.New[string, string]()
	return r.cells.UnmarshalJSON(data)
}

func (r *Record) MarshalYAML() (interface{}, error) {
	r.init()
	return r.cells.MarshalYAML()
}

func (r *Record) UnmarshalYAML(value *yaml.Node) error {
	r.cells = orderedmap.New[string, string]()
	return r.cells.UnmarshalYAML(value)
}
