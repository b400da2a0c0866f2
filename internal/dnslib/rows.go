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
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// Field is one ordered key/value pair of a decoded row.
type Field struct {
	Key   string
	Value any
}

// Row is a single decoded resource record. Fields returns the row's columns in
// their canonical order.
type Row interface {
	RecordType() RecordType
	Fields() []Field
}

// MXRow is a decoded MX answer.
type MXRow struct {
	Domain     string     `json:"domain"`
	RDType     RecordType `json:"rdtype"`
	Preference int        `json:"preference"`
	Exchange   string     `json:"exchange"`
}

func (r MXRow) RecordType() RecordType { return r.RDType }

func (r MXRow) Fields() []Field {
	return []Field{
		{"domain", r.Domain},
		{"rdtype", string(r.RDType)},
		{"preference", r.Preference},
		{"exchange", r.Exchange},
	}
}

// SOARow is a decoded SOA answer.
type SOARow struct {
	Domain  string     `json:"domain"`
	RDType  RecordType `json:"rdtype"`
	MName   string     `json:"mname"`
	RName   string     `json:"rname"`
	Serial  uint32     `json:"serial"`
	Refresh uint32     `json:"refresh"`
	Retry   uint32     `json:"retry"`
	Expire  uint32     `json:"expire"`
	Minimum uint32     `json:"minimum"`
}

func (r SOARow) RecordType() RecordType { return r.RDType }

func (r SOARow) Fields() []Field {
	return []Field{
		{"domain", r.Domain},
		{"rdtype", string(r.RDType)},
		{"mname", r.MName},
		{"rname", r.RName},
		{"serial", r.Serial},
		{"refresh", r.Refresh},
		{"retry", r.Retry},
		{"expire", r.Expire},
		{"minimum", r.Minimum},
	}
}

// GenericRow carries the record data in presentation format.
type GenericRow struct {
	Domain  string     `json:"domain"`
	RDType  RecordType `json:"rdtype"`
	Address string     `json:"address"`
}

func (r GenericRow) RecordType() RecordType { return r.RDType }

func (r GenericRow) Fields() []Field {
	return []Field{
		{"domain", r.Domain},
		{"rdtype", string(r.RDType)},
		{"address", r.Address},
	}
}

// RDataText renders the data part of rr in zone-file presentation format.
// Types miekg/dns does not know arrive as RFC 3597 records and use the \# form.
func RDataText(rr dns.RR) string {
	if unknown, ok := rr.(*dns.RFC3597); ok {
		return `\# ` + strconv.Itoa(len(unknown.Rdata)/2) + " " + unknown.Rdata
	}
	full := rr.String()
	return strings.TrimPrefix(full, rr.Header().String())
}

// Decode turns the answers for one query into rows labelled with rdtype.
// Answers the decoder for the type's shape cannot handle are emitted as generic rows.
func Decode(domain string, rdtype RecordType, answers []dns.RR) []Row {
	rows := make([]Row, 0, len(answers))
	shape := rdtype.Shape()
	for _, rr := range answers {
		rows = append(rows, decodeOne(domain, rdtype, shape, rr))
	}
	return rows
}

// decoder builds a row from one answer, reporting false when rr is not the
// record it expects.
type decoder func(domain string, rdtype RecordType, rr dns.RR) (Row, bool)

var decoders = map[Shape]decoder{
	ShapeMX:  decodeMX,
	ShapeSOA: decodeSOA,
}

func decodeOne(domain string, rdtype RecordType, shape Shape, rr dns.RR) Row {
	if dec, ok := decoders[shape]; ok {
		if row, ok := dec(domain, rdtype, rr); ok {
			return row
		}
	}
	return GenericRow{Domain: domain, RDType: rdtype, Address: RDataText(rr)}
}

func decodeMX(domain string, rdtype RecordType, rr dns.RR) (Row, bool) {
	mx, ok := rr.(*dns.MX)
	if !ok {
		return nil, false
	}
	return MXRow{Domain: domain, RDType: rdtype, Preference: int(mx.Preference), Exchange: mx.Mx}, true
}

func decodeSOA(domain string, rdtype RecordType, rr dns.RR) (Row, bool) {
	soa, ok := rr.(*dns.SOA)
	if !ok {
		return nil, false
	}
	return SOARow{
		Domain:  domain,
		RDType:  rdtype,
		MName:   soa.Ns,
		RName:   soa.Mbox,
		Serial:  soa.Serial,
		Refresh: soa.Refresh,
		Retry:   soa.Retry,
		Expire:  soa.Expire,
		Minimum: soa.Minttl,
	}, true
}
