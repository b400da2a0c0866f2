package metrics

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
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDisabledIsNoop(t *testing.T) {
	DisableMetrics()
	m := GetMetrics()
	before := testutil.ToFloat64(m.DNSQueriesTotal.WithLabelValues("MX", "success", "none"))
	ObserveDNSQuery("MX", "success", "none", time.Millisecond)
	if after := testutil.ToFloat64(m.DNSQueriesTotal.WithLabelValues("MX", "success", "none")); after != before {
		t.Errorf("counter moved while disabled: %v -> %v", before, after)
	}
}

func TestObserveEnabled(t *testing.T) {
	EnableMetrics()
	defer DisableMetrics()
	m := GetMetrics()

	ObserveDNSQuery("A", "empty", "no_answer", 2*time.Millisecond)
	ObserveDNSRows("A", 3)
	ObserveCTRows(4, 1)
	ObserveExport("csv", 7, 2048, nil)
	ObserveExport("xlsx", 7, 0, errors.New("disk full"))
	SetDomainsDiscovered(12)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"dns queries", testutil.ToFloat64(m.DNSQueriesTotal.WithLabelValues("A", "empty", "no_answer")), 1},
		{"dns rows", testutil.ToFloat64(m.DNSRowsTotal.WithLabelValues("A")), 3},
		{"ct kept", testutil.ToFloat64(m.CTRowsTotal.WithLabelValues("kept")), 4},
		{"ct skipped", testutil.ToFloat64(m.CTRowsTotal.WithLabelValues("skipped")), 1},
		{"export rows", testutil.ToFloat64(m.ExportRowsTotal.WithLabelValues("csv")), 7},
		{"export errors", testutil.ToFloat64(m.ExportErrorsTotal.WithLabelValues("xlsx")), 1},
		{"discovered", testutil.ToFloat64(m.DomainsDiscovered), 12},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if n := testutil.CollectAndCount(m.DNSQueryDuration); n == 0 {
		t.Error("duration histogram has no series")
	}
}
