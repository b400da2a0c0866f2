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

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// certificatesAnchor is the header text of the outer results table.
const certificatesAnchor = "Certificates"

// Page structure errors. They make a harvest come back empty, never fail a run.
var (
	ErrAnchorNotFound    = errors.New("certificates header not found")
	ErrTableNotFound     = errors.New("certificates table not found")
	ErrDataTableNotFound = errors.New("certificate data table not found")
)

// ParseStats counts the data rows of one parsed table.
type ParseStats struct {
	Rows    int
	Skipped int
	// Duplicates counts kept rows whose Fingerprint matches an earlier row.
	Duplicates int
}

// ParseCertificates reads a crt.sh search page and returns its certificates in
// table order. Rows whose cell count differs from the header count are skipped.
func ParseCertificates(r io.Reader, repairer *Repairer) ([]Certificate, ParseStats, error) {
	var stats ParseStats
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, stats, errors.Wrap(err, "parse html")
	}

	anchor := doc.Find("th").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == certificatesAnchor
	}).First()
	if anchor.Length() == 0 {
		return nil, stats, ErrAnchorNotFound
	}
	outer := anchor.Closest("table")
	if outer.Length() == 0 {
		return nil, stats, ErrTableNotFound
	}
	data := outer.Find("table").First()
	if data.Length() == 0 {
		return nil, stats, ErrDataTableNotFound
	}

	var headers []string
	data.Find("th").Each(func(_ int, s *goquery.Selection) {
		headers = append(headers, NormalizeHeader(strippedText(s)))
	})

	certs := make([]Certificate, 0)
	seen := make(map[string]struct{})
	rows := data.Find("tr")
	if rows.Length() < 2 {
		return certs, stats, nil
	}
	rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		stats.Rows++
		cells := row.Find("td")
		if cells.Length() != len(headers) {
			stats.Skipped++
			return
		}
		texts := make([]string, 0, len(headers))
		cells.Each(func(_ int, cell *goquery.Selection) {
			texts = append(texts, strippedText(cell))
		})
		cert, err := NewCertificate(headers, texts, repairer)
		if err != nil {
			stats.Skipped++
			return
		}
		fp := cert.Fingerprint()
		if _, dup := seen[fp]; dup {
			stats.Duplicates++
		}
		seen[fp] = struct{}{}
		certs = append(certs, cert)
	})
	return certs, stats, nil
}

// strippedText concatenates the trimmed text nodes below s. Names split by <br>
// in the page therefore end up glued together, which Repairer later undoes for
// known suffixes.
func strippedText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		appendStripped(&b, n)
	}
	return b.String()
}

func appendStripped(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(strings.TrimSpace(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendStripped(b, c)
	}
}
