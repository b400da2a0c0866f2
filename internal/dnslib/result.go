package dnslib

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

import (
	"bytes"
	"encoding/json"
)

// Status is the coarse result of looking up one record type.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	default:
		return "failed"
	}
}

// Outcome is the result of one record type lookup. Rows is never nil.
type Outcome struct {
	Type   RecordType
	Status Status
	Kind   ErrorKind
	Rows   []Row
	Err    error
}

// MarshalJSON renders only the rows, so a failed or empty lookup becomes [].
func (o Outcome) MarshalJSON() ([]byte, error) {
	rows := o.Rows
	if rows == nil {
		rows = []Row{}
	}
	return json.Marshal(rows)
}

// DomainResult holds one Outcome per catalogue record type, in catalogue order.
type DomainResult struct {
	Domain   string
	Outcomes []Outcome
}

// Outcome returns the outcome for t.
func (r DomainResult) Outcome(t RecordType) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Type == t {
			return o, true
		}
	}
	return Outcome{}, false
}

// Rows returns the decoded rows for t, or an empty slice.
func (r DomainResult) Rows(t RecordType) []Row {
	if o, ok := r.Outcome(t); ok && o.Rows != nil {
		return o.Rows
	}
	return []Row{}
}

// RowCount sums the rows across all record types.
func (r DomainResult) RowCount() int {
	n := 0
	for _, o := range r.Outcomes {
		n += len(o.Rows)
	}
	return n
}

// MarshalJSON renders {"domain": ..., "A": [...], "AAAA": [...], ...} with keys in
// catalogue order.
func (r DomainResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"domain":`)
	name, err := json.Marshal(r.Domain)
	if err != nil {
		return nil, err
	}
	buf.Write(name)
	for _, o := range r.Outcomes {
		key, err := json.Marshal(string(o.Type))
		if err != nil {
			return nil, err
		}
		val, err := o.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
