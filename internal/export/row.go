package export

/*
rxrecon — DNS and Certificate Transparency reconnaissance in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package export turns DNS results and certificates into flat rows and writes them
as JSON, CSV, XLSX or SQLite.
*/

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Row is an ordered mapping of column names to values. Setting an existing key
// replaces its value in place.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a row from alternating key/value pairs.
func NewRow(kv ...any) Row {
	var r Row
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		r.Set(k, kv[i+1])
	}
	return r
}

// Set stores value under key.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r Row) Keys() []string {
	return append([]string(nil), r.keys...)
}

// MarshalJSON renders the row as an object with keys in insertion order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		val, err := marshalNoEscape(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Columns returns the union of row keys in order of first appearance.
func Columns(rows []Row) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rows {
		for _, k := range r.keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}

// FormatCell renders a value as cell text. Missing values render empty.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, " ")
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	b, err := marshalNoEscape(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Flatten returns copies of rows with every []string value joined by one space.
func Flatten(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		var flat Row
		for _, k := range r.keys {
			v := r.values[k]
			if list, ok := v.([]string); ok {
				v = strings.Join(list, " ")
			}
			flat.Set(k, v)
		}
		out = append(out, flat)
	}
	return out
}
