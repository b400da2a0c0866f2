package core

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
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/x-stp/rxrecon/internal/certlib"
	"github.com/x-stp/rxrecon/internal/dnslib"
)

type fakeSource struct {
	certs      []certlib.Certificate
	discovered []string
	fetched    []string
	validAt    time.Time
}

func (f *fakeSource) FetchCertificates(_ context.Context, domain string) []certlib.Certificate {
	f.fetched = append(f.fetched, domain)
	return f.certs
}

func (f *fakeSource) DiscoveredDomains() []string { return f.discovered }

func (f *fakeSource) ValidCertificates(now time.Time) []certlib.Certificate {
	f.validAt = now
	return certlib.ValidCertificates(f.certs, now)
}

type fakeCollector struct {
	seen   []string
	cancel context.CancelFunc
	after  int
}

func (f *fakeCollector) Collect(_ context.Context, domain string) dnslib.DomainResult {
	f.seen = append(f.seen, domain)
	if f.cancel != nil && len(f.seen) == f.after {
		f.cancel()
	}
	outcomes := make([]dnslib.Outcome, 0, len(dnslib.RecordTypes()))
	for _, t := range dnslib.RecordTypes() {
		o := dnslib.Outcome{Type: t, Status: dnslib.StatusEmpty, Kind: dnslib.KindNoAnswer, Rows: []dnslib.Row{}}
		switch t {
		case dnslib.A:
			o = dnslib.Outcome{Type: t, Status: dnslib.StatusSuccess, Rows: []dnslib.Row{dnslib.GenericRow{Domain: domain, RDType: t, Address: "192.0.2.1"}}}
		case dnslib.AAAA:
			o = dnslib.Outcome{Type: t, Status: dnslib.StatusFailed, Kind: dnslib.KindTimeout, Rows: []dnslib.Row{}}
		}
		outcomes = append(outcomes, o)
	}
	return dnslib.DomainResult{Domain: domain, Outcomes: outcomes}
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func mustCert(t *testing.T, notAfter string) certlib.Certificate {
	t.Helper()
	c, err := certlib.NewCertificate([]string{"Not After", "Common Name"}, []string{notAfter, "www.example.com"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSplitDomains(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"a.com", "a.com"},
		{"a.com,b.com", "a.com|b.com"},
		{" a.com , ,b.com,", "a.com|b.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := strings.Join(SplitDomains(tt.in), "|"); got != tt.want {
			t.Errorf("SplitDomains(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReconCertificatesValidOnly(t *testing.T) {
	t.Parallel()
	src := &fakeSource{certs: []certlib.Certificate{mustCert(t, "2000-01-01"), mustCert(t, "2099-01-01"), mustCert(t, "soon")}}
	r := NewRecon(src, &fakeCollector{}, quietLogger())
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	if got := r.Certificates(context.Background(), "example.com", false); len(got) != 3 {
		t.Errorf("all certificates = %d, want 3", len(got))
	}
	valid := r.Certificates(context.Background(), "example.com", true)
	if len(valid) != 1 {
		t.Fatalf("valid certificates = %d, want 1", len(valid))
	}
	if !src.validAt.Equal(fixed) {
		t.Errorf("ValidCertificates called with %v", src.validAt)
	}
	if n := r.Stats().Certificates.Load(); n != 4 {
		t.Errorf("stats certificates = %d, want 4", n)
	}
}

func TestReconDNS(t *testing.T) {
	t.Parallel()
	col := &fakeCollector{}
	r := NewRecon(&fakeSource{}, col, quietLogger())
	results := r.DNS(context.Background(), []string{"a.com", "b.com"})
	if len(results) != 2 || results[1].Domain != "b.com" {
		t.Fatalf("results = %+v", results)
	}
	s := r.Stats()
	if s.DomainsCollected.Load() != 2 || s.Records.Load() != 2 || s.FailedLookups.Load() != 2 {
		t.Errorf("stats = %v", s.Fields())
	}
	if s.EmptyLookups.Load() != int64(2*(len(dnslib.RecordTypes())-2)) {
		t.Errorf("empty lookups = %d", s.EmptyLookups.Load())
	}
	if s.FailureRate() <= 0 {
		t.Error("failure rate should be positive")
	}
}

func TestReconDNSStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	col := &fakeCollector{cancel: cancel, after: 1}
	r := NewRecon(&fakeSource{}, col, quietLogger())
	results := r.DNS(ctx, []string{"a.com", "b.com", "c.com"})
	if len(results) != 1 || len(col.seen) != 1 {
		t.Errorf("collected %v, want only the first domain", col.seen)
	}
}

func TestReconAll(t *testing.T) {
	t.Parallel()
	src := &fakeSource{discovered: []string{"a.example.com", "cdn.other.net", "example.com"}}
	col := &fakeCollector{}
	r := NewRecon(src, col, quietLogger())

	results, targets := r.All(context.Background(), "example.com", ScopeRegistrable)
	if strings.Join(src.fetched, ",") != "example.com" {
		t.Errorf("fetched = %v", src.fetched)
	}
	if strings.Join(targets, ",") != "a.example.com,example.com" {
		t.Errorf("targets = %v", targets)
	}
	if len(results) != 2 || strings.Join(col.seen, ",") != "a.example.com,example.com" {
		t.Errorf("collected %v", col.seen)
	}
	if r.Stats().DomainsDiscovered.Load() != 3 {
		t.Errorf("discovered = %d", r.Stats().DomainsDiscovered.Load())
	}
}

func TestReconAllNothingDiscovered(t *testing.T) {
	t.Parallel()
	col := &fakeCollector{}
	r := NewRecon(&fakeSource{discovered: []string{}}, col, quietLogger())
	results, targets := r.All(context.Background(), "example.com", ScopeAll)
	if results == nil || len(results) != 0 || len(targets) != 0 || len(col.seen) != 0 {
		t.Errorf("results = %v, targets = %v, seen = %v", results, targets, col.seen)
	}
}
