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

import (
	"encoding/json"
	"sort"

	"github.com/x-stp/rxrecon/internal/certlib"
	"github.com/x-stp/rxrecon/internal/dnslib"
)

// Keys added by DNS expansion.
const (
	KeyDomain     = "domain"
	KeyRecordType = "record_type"
	KeyValue      = "value"
)

// fieldOrder is the column order used for records decoded from JSON, whose
// object keys carry no order.
var fieldOrder = []string{
	"domain", "rdtype",
	"preference", "exchange",
	"mname", "rname", "serial", "refresh", "retry", "expire", "minimum",
	"address",
}

// ExpandDNSResults emits one row per decoded record:
// {domain, record_type} followed by the record's own fields.
func ExpandDNSResults(results []dnslib.DomainResult) []Row {
	rows := make([]Row, 0)
	for _, res := range results {
		for _, o := range res.Outcomes {
			for _, rec := range o.Rows {
				var row Row
				row.Set(KeyDomain, res.Domain)
				row.Set(KeyRecordType, string(o.Type))
				for _, f := range rec.Fields() {
					row.Set(f.Key, f.Value)
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// ExpandDecoded performs the same expansion over nested results read back from
// JSON. Empty values contribute nothing. A value that is not a list of objects
// yields a single {domain, record_type, value} row.
func ExpandDecoded(docs []map[string]any) []Row {
	rows := make([]Row, 0)
	for _, doc := range docs {
		domain := doc[KeyDomain]
		for _, key := range decodedKeys(doc) {
			value := doc[key]
			if isEmpty(value) {
				continue
			}
			records, ok := recordList(value)
			if !ok {
				rows = append(rows, NewRow(KeyDomain, domain, KeyRecordType, key, KeyValue, value))
				continue
			}
			for _, rec := range records {
				var row Row
				row.Set(KeyDomain, domain)
				row.Set(KeyRecordType, key)
				for _, k := range orderedFields(rec) {
					row.Set(k, rec[k])
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// decodedKeys lists the record type keys of doc: catalogue types first in
// catalogue order, then any other keys sorted.
func decodedKeys(doc map[string]any) []string {
	keys := make([]string, 0, len(doc))
	known := make(map[string]struct{})
	for _, rt := range dnslib.RecordTypes() {
		known[string(rt)] = struct{}{}
		if _, ok := doc[string(rt)]; ok {
			keys = append(keys, string(rt))
		}
	}
	var extra []string
	for k := range doc {
		if _, ok := known[k]; ok || k == KeyDomain {
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func orderedFields(rec map[string]any) []string {
	keys := make([]string, 0, len(rec))
	seen := make(map[string]struct{}, len(rec))
	for _, k := range fieldOrder {
		if _, ok := rec[k]; ok {
			keys = append(keys, k)
			seen[k] = struct{}{}
		}
	}
	var rest []string
	for k := range rec {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// recordList accepts only a list whose every element is an object.
func recordList(v any) ([]map[string]any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, rec)
	}
	return out, true
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// CertificateRows emits one row per certificate in column order. Identity
// columns keep their []string values.
func CertificateRows(certs []certlib.Certificate) []Row {
	rows := make([]Row, 0, len(certs))
	for _, c := range certs {
		var row Row
		c.Each(func(column string, value any) {
			row.Set(column, value)
		})
		rows = append(rows, row)
	}
	return rows
}
