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

/*
Package dnslib resolves the fixed catalogue of DNS record types for a domain and
decodes the answers into flat, exportable rows.

Every record type is queried independently. A failure on one type never aborts the
others; it is recorded as an Outcome with a Status and an ErrorKind so callers can
tell "nothing there" apart from "could not ask".
*/

import (
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// RecordType is the presentation name of a DNS resource record type, e.g. "MX".
type RecordType string

// The record types collected for every domain, in collection order.
const (
	A          RecordType = "A"
	AAAA       RecordType = "AAAA"
	SOA        RecordType = "SOA"
	MX         RecordType = "MX"
	TXT        RecordType = "TXT"
	CNAME      RecordType = "CNAME"
	NS         RecordType = "NS"
	DNSKEY     RecordType = "DNSKEY"
	HINFO      RecordType = "HINFO"
	LOC        RecordType = "LOC"
	MG         RecordType = "MG"
	MINFO      RecordType = "MINFO"
	MR         RecordType = "MR"
	NSEC       RecordType = "NSEC"
	NSEC3      RecordType = "NSEC3"
	NSEC3PARAM RecordType = "NSEC3PARAM"
	NSAP       RecordType = "NSAP"
	KEY        RecordType = "KEY"
	RP         RecordType = "RP"
	RRSIG      RecordType = "RRSIG"
	RT         RecordType = "RT"
	SRV        RecordType = "SRV"
	WKS        RecordType = "WKS"
	PX         RecordType = "PX"
	X25        RecordType = "X25"
)

// Wire codes miekg/dns does not export.
const (
	typeWKS  uint16 = 11
	typeNSAP uint16 = 22
)

// Shape selects the decoder used for a record type's answers.
type Shape uint8

const (
	// ShapeGeneric rows carry the record data as one text field.
	ShapeGeneric Shape = iota
	// ShapeMX rows carry preference and exchange.
	ShapeMX
	// ShapeSOA rows carry the seven SOA fields.
	ShapeSOA
)

type typeSpec struct {
	name  RecordType
	code  uint16
	shape Shape
}

var recordTable = [...]typeSpec{
	{A, dns.TypeA, ShapeGeneric},
	{AAAA, dns.TypeAAAA, ShapeGeneric},
	{SOA, dns.TypeSOA, ShapeSOA},
	{MX, dns.TypeMX, ShapeMX},
	{TXT, dns.TypeTXT, ShapeGeneric},
	{CNAME, dns.TypeCNAME, ShapeGeneric},
	{NS, dns.TypeNS, ShapeGeneric},
	{DNSKEY, dns.TypeDNSKEY, ShapeGeneric},
	{HINFO, dns.TypeHINFO, ShapeGeneric},
	{LOC, dns.TypeLOC, ShapeGeneric},
	{MG, dns.TypeMG, ShapeGeneric},
	{MINFO, dns.TypeMINFO, ShapeGeneric},
	{MR, dns.TypeMR, ShapeGeneric},
	{NSEC, dns.TypeNSEC, ShapeGeneric},
	{NSEC3, dns.TypeNSEC3, ShapeGeneric},
	{NSEC3PARAM, dns.TypeNSEC3PARAM, ShapeGeneric},
	{NSAP, typeNSAP, ShapeGeneric},
	{KEY, dns.TypeKEY, ShapeGeneric},
	{RP, dns.TypeRP, ShapeGeneric},
	{RRSIG, dns.TypeRRSIG, ShapeGeneric},
	{RT, dns.TypeRT, ShapeGeneric},
	{SRV, dns.TypeSRV, ShapeGeneric},
	{WKS, typeWKS, ShapeGeneric},
	{PX, dns.TypePX, ShapeGeneric},
	{X25, dns.TypeX25, ShapeGeneric},
}

var tableIndex = func() map[RecordType]int {
	idx := make(map[RecordType]int, len(recordTable))
	for i, ts := range recordTable {
		idx[ts.name] = i
	}
	return idx
}()

// RecordTypes returns the collected record types in collection order.
func RecordTypes() []RecordType {
	out := make([]RecordType, len(recordTable))
	for i, ts := range recordTable {
		out[i] = ts.name
	}
	return out
}

// ParseRecordType resolves a case-insensitive type name against the catalogue.
func ParseRecordType(s string) (RecordType, bool) {
	t := RecordType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := tableIndex[t]
	return t, ok
}

// Valid reports whether t is part of the catalogue.
func (t RecordType) Valid() bool {
	_, ok := tableIndex[t]
	return ok
}

// Code returns the wire type code, or 0 for an unknown type.
func (t RecordType) Code() uint16 {
	if i, ok := tableIndex[t]; ok {
		return recordTable[i].code
	}
	return 0
}

// Shape returns the decoder shape; unknown types decode generically.
func (t RecordType) Shape() Shape {
	if i, ok := tableIndex[t]; ok {
		return recordTable[i].shape
	}
	return ShapeGeneric
}

func (t RecordType) String() string { return string(t) }

// typeName renders a wire code the way answers are labelled, falling back to
// the RFC 3597 TYPEnnn form.
func typeName(code uint16) string {
	for _, ts := range recordTable {
		if ts.code == code {
			return string(ts.name)
		}
	}
	if s, ok := dns.TypeToString[code]; ok {
		return s
	}
	return "TYPE" + strconv.Itoa(int(code))
}
