package certlib

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
Package certlib harvests certificates for a domain from the crt.sh search page,
repairs and extracts the domain names listed in each certificate, and derives the
set of discovered domains and the currently valid certificates.
*/

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"
)

// Column names of the crt.sh certificates table.
const (
	ColumnCrtShID            = "crt.sh ID"
	ColumnLoggedAt           = "Logged At"
	ColumnNotBefore          = "Not Before"
	ColumnNotAfter           = "Not After"
	ColumnCommonName         = "Common Name"
	ColumnMatchingIdentities = "Matching Identities"
	ColumnIssuerName         = "Issuer Name"

	// NotAfterLayout is the date layout of the Not After column.
	NotAfterLayout = "2006-01-02"
)

// IdentityColumns hold domain names and are stored as extracted lists.
var IdentityColumns = []string{ColumnCommonName, ColumnMatchingIdentities}

// headerAliases maps header spellings carrying a sort indicator to the canonical name.
var headerAliases = map[string]string{
	"Logged At⇧": ColumnLoggedAt,
	"Logged At⇩": ColumnLoggedAt,
}

// NormalizeHeader returns the canonical column name for a scraped header cell.
func NormalizeHeader(h string) string {
	if canonical, ok := headerAliases[h]; ok {
		return canonical
	}
	return h
}

// IsIdentityColumn reports whether column holds extracted domain names.
func IsIdentityColumn(column string) bool {
	for _, c := range IdentityColumns {
		if c == column {
			return true
		}
	}
	return false
}

// Certificate is one row of the certificates table. Columns keep the table order.
// Identity columns hold the domain names extracted from the cell text; every other
// column keeps the scraped text.
type Certificate struct {
	columns    []string
	values     map[string]string
	identities map[string][]string
}

// NewCertificate builds a certificate from a header row and one data row of equal
// length. Identity cells are repaired with r and reduced to their domain names.
// Identity columns missing from the header are added with no names.
func NewCertificate(headers, cells []string, r *Repairer) (Certificate, error) {
	if len(headers) != len(cells) {
		return Certificate{}, fmt.Errorf("row has %d cells, header has %d", len(cells), len(headers))
	}
	c := Certificate{
		columns:    make([]string, 0, len(headers)+len(IdentityColumns)),
		values:     make(map[string]string, len(headers)),
		identities: make(map[string][]string, len(IdentityColumns)),
	}
	for i, h := range headers {
		h = NormalizeHeader(h)
		if !c.has(h) {
			c.columns = append(c.columns, h)
		}
		if IsIdentityColumn(h) {
			c.identities[h] = ExtractDomains(r.Repair(cells[i]))
			continue
		}
		c.values[h] = cells[i]
	}
	for _, col := range IdentityColumns {
		if !c.has(col) {
			c.columns = append(c.columns, col)
			c.identities[col] = []string{}
		}
	}
	return c, nil
}

func (c Certificate) has(column string) bool {
	if _, ok := c.values[column]; ok {
		return true
	}
	_, ok := c.identities[column]
	return ok
}

// Columns returns the column names in table order.
func (c Certificate) Columns() []string {
	return append([]string(nil), c.columns...)
}

// Value returns the scraped text of a non-identity column.
func (c Certificate) Value(column string) string {
	return c.values[column]
}

// Identities returns the domain names extracted from an identity column.
func (c Certificate) Identities(column string) []string {
	return c.identities[column]
}

// Domains returns the names of both identity columns, Common Name first.
func (c Certificate) Domains() []string {
	var out []string
	for _, col := range IdentityColumns {
		out = append(out, c.identities[col]...)
	}
	return out
}

// Each calls fn for every column in order. Identity columns pass a []string,
// all others a string.
func (c Certificate) Each(fn func(column string, value any)) {
	for _, col := range c.columns {
		if ids, ok := c.identities[col]; ok {
			fn(col, ids)
			continue
		}
		fn(col, c.values[col])
	}
}

// NotAfter parses the Not After column as a date in loc.
func (c Certificate) NotAfter(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(NotAfterLayout, c.values[ColumnNotAfter], loc)
}

// ValidAt reports whether the certificate's Not After date is on or after the
// calendar day of now. Missing or unparsable dates are never valid.
func (c Certificate) ValidAt(now time.Time) bool {
	notAfter, err := c.NotAfter(now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !notAfter.Before(today)
}

// Fingerprint is a NON-CRYPTOGRAPHIC hash (xxh3) of the certificate's columns and values.
func (c Certificate) Fingerprint() string {
	var b bytes.Buffer
	c.Each(func(column string, value any) {
		b.WriteString(column)
		b.WriteByte(0x1f)
		switch v := value.(type) {
		case []string:
			for _, s := range v {
				b.WriteString(s)
				b.WriteByte(' ')
			}
		case string:
			b.WriteString(v)
		}
		b.WriteByte(0x1e)
	})
	return fmt.Sprintf("%x", xxh3.Hash(b.Bytes()))
}

// MarshalJSON renders the certificate as an object in column order.
func (c Certificate) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	c.Each(func(column string, value any) {
		if err != nil {
			return
		}
		var k, v []byte
		if k, err = json.Marshal(column); err != nil {
			return
		}
		if v, err = json.Marshal(value); err != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ValidCertificates returns the certificates valid at now, preserving order.
func ValidCertificates(certs []Certificate, now time.Time) []Certificate {
	out := make([]Certificate, 0, len(certs))
	for _, c := range certs {
		if c.ValidAt(now) {
			out = append(out, c)
		}
	}
	return out
}
