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
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestParseCertificates(t *testing.T) {
	page := searchPage(
		certRow("1", "2099-01-01", "a.aragon.es", "a.aragon.es<br>b.aragon.es<br>www.example.org"),
		malformedRow,
		certRow("2", "2000-01-01", "legacy.example.org", "legacy.example.org"),
	)
	certs, stats, err := ParseCertificates(strings.NewReader(page), NewRepairer(DefaultGlueRules))
	if err != nil {
		t.Fatalf("ParseCertificates: %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("got %d certificates, want 2", len(certs))
	}
	if stats.Rows != 3 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 3 rows, 1 skipped", stats)
	}

	wantColumns := []string{ColumnCrtShID, ColumnLoggedAt, ColumnNotBefore, ColumnNotAfter, ColumnCommonName, ColumnMatchingIdentities, ColumnIssuerName}
	if got := certs[0].Columns(); strings.Join(got, "|") != strings.Join(wantColumns, "|") {
		t.Errorf("columns = %q, want %q", got, wantColumns)
	}

	ids := certs[0].Identities(ColumnMatchingIdentities)
	want := []string{"a.aragon.es", "b.aragon.es", "www.example.org"}
	if strings.Join(ids, " ") != strings.Join(want, " ") {
		t.Errorf("Matching Identities = %q, want %q", ids, want)
	}
	if got := certs[1].Value(ColumnCrtShID); got != "2" {
		t.Errorf("second crt.sh ID = %q", got)
	}
	if got := certs[0].Value(ColumnIssuerName); got != "C=US, O=Let's Encrypt, CN=R3" {
		t.Errorf("issuer = %q", got)
	}
}

func TestParseCertificatesCountsDuplicates(t *testing.T) {
	row := certRow("7", "2099-01-01", "a.aragon.es", "a.aragon.es")
	page := searchPage(row, row, certRow("8", "2099-01-01", "a.aragon.es", "a.aragon.es"))
	certs, stats, err := ParseCertificates(strings.NewReader(page), nil)
	if err != nil {
		t.Fatalf("ParseCertificates: %v", err)
	}
	if len(certs) != 3 {
		t.Fatalf("got %d certificates, want all 3 kept", len(certs))
	}
	if stats.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", stats.Duplicates)
	}
}

func TestParseCertificatesStructureErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		page string
		want error
	}{
		{"no anchor", `<html><body><table><tr><th>Results</th></tr></table></body></html>`, ErrAnchorNotFound},
		{"anchor outside table", `<html><body><th>Certificates</th></body></html>`, ErrAnchorNotFound},
		{"no data table", `<html><body><table><tr><th>Certificates</th><td>None found</td></tr></table></body></html>`, ErrDataTableNotFound},
	}
	for _, tt := range tests {
		_, _, err := ParseCertificates(strings.NewReader(tt.page), nil)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestParseCertificatesEmptyTable(t *testing.T) {
	t.Parallel()
	certs, stats, err := ParseCertificates(strings.NewReader(searchPage()), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(certs) != 0 || stats.Rows != 0 {
		t.Errorf("got %d certs, stats %+v", len(certs), stats)
	}
	if certs == nil {
		t.Error("empty collection should not be nil")
	}
}

func TestStrippedTextGluesNodes(t *testing.T) {
	t.Parallel()
	page := searchPage(certRow("9", "2099-01-01", " x.example.org ", "x.example.org<br>\n  y.example.org"))
	certs, _, err := ParseCertificates(strings.NewReader(page), nil)
	if err != nil {
		t.Fatal(err)
	}
	// Without a glue rule the two names stay merged into one token.
	ids := certs[0].Identities(ColumnMatchingIdentities)
	if len(ids) != 1 || ids[0] != "x.example.orgy.example.org" {
		t.Errorf("identities = %q", ids)
	}
	if cn := certs[0].Identities(ColumnCommonName); len(cn) != 1 || cn[0] != "x.example.org" {
		t.Errorf("common name = %q", cn)
	}
}
