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
	"encoding/json"
	"testing"
	"time"
)

var testHeaders = []string{"crt.sh ID", "Logged At⇧", "Not After", "Common Name", "Matching Identities"}

func mustCertificate(t *testing.T, notAfter, cn, identities string) Certificate {
	t.Helper()
	c, err := NewCertificate(testHeaders, []string{"42", "2024-05-01", notAfter, cn, identities}, NewRepairer(DefaultGlueRules))
	if err != nil {
		t.Fatalf("NewCertificate: %v", err)
	}
	return c
}

func TestNewCertificate(t *testing.T) {
	t.Parallel()
	c := mustCertificate(t, "2099-01-01", "*.aragon.es", "aragon.eswww.aragon.es")

	if got := c.Columns()[1]; got != ColumnLoggedAt {
		t.Errorf("renamed header = %q, want %q", got, ColumnLoggedAt)
	}
	if got := c.Value(ColumnLoggedAt); got != "2024-05-01" {
		t.Errorf("Logged At = %q", got)
	}
	if cn := c.Identities(ColumnCommonName); len(cn) != 1 || cn[0] != "aragon.es" {
		t.Errorf("Common Name = %q", cn)
	}
	if mi := c.Identities(ColumnMatchingIdentities); len(mi) != 2 || mi[1] != "www.aragon.es" {
		t.Errorf("Matching Identities = %q", mi)
	}
	if d := c.Domains(); len(d) != 3 {
		t.Errorf("Domains = %q", d)
	}

	if _, err := NewCertificate(testHeaders, []string{"1"}, nil); err == nil {
		t.Error("expected error for short row")
	}
}

func TestNewCertificateAddsMissingIdentityColumns(t *testing.T) {
	t.Parallel()
	c, err := NewCertificate([]string{"crt.sh ID", "Not After"}, []string{"7", "2099-01-01"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	cols := c.Columns()
	if len(cols) != 4 || cols[2] != ColumnCommonName || cols[3] != ColumnMatchingIdentities {
		t.Errorf("columns = %q", cols)
	}
	if ids := c.Identities(ColumnCommonName); ids == nil || len(ids) != 0 {
		t.Errorf("missing identity column = %#v, want empty", ids)
	}
}

func TestValidAt(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)
	tests := []struct {
		notAfter string
		want     bool
	}{
		{"2099-01-01", true},
		{"2025-06-15", true},
		{"2025-06-14", false},
		{"2000-01-01", false},
		{"not-a-date", false},
		{"", false},
	}
	for _, tt := range tests {
		c := mustCertificate(t, tt.notAfter, "example.org", "example.org")
		if got := c.ValidAt(now); got != tt.want {
			t.Errorf("ValidAt with Not After %q = %v, want %v", tt.notAfter, got, tt.want)
		}
	}

	certs := []Certificate{
		mustCertificate(t, "2099-01-01", "a.example.org", ""),
		mustCertificate(t, "not-a-date", "b.example.org", ""),
		mustCertificate(t, "2030-01-01", "c.example.org", ""),
	}
	valid := ValidCertificates(certs, now)
	if len(valid) != 2 || valid[1].Identities(ColumnCommonName)[0] != "c.example.org" {
		t.Errorf("ValidCertificates kept %d", len(valid))
	}
}

func TestCertificateJSON(t *testing.T) {
	t.Parallel()
	c := mustCertificate(t, "2099-01-01", "example.org", "")
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"crt.sh ID":"42","Logged At":"2024-05-01","Not After":"2099-01-01","Common Name":["example.org"],"Matching Identities":[]}`
	if string(b) != want {
		t.Errorf("json =\n%s\nwant\n%s", b, want)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()
	a := mustCertificate(t, "2099-01-01", "example.org", "example.org")
	b := mustCertificate(t, "2099-01-01", "example.org", "example.org")
	c := mustCertificate(t, "2099-01-02", "example.org", "example.org")
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical certificates hash differently")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different certificates share a fingerprint")
	}
}

func BenchmarkNewCertificate(b *testing.B) {
	r := NewRepairer(DefaultGlueRules)
	cells := []string{"42", "2024-05-01", "2099-01-01", "aragon.es", "a.aragon.esb.aragon.esc.aragon.es"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := NewCertificate(testHeaders, cells, r); err != nil {
			b.Fatal(err)
		}
	}
}
