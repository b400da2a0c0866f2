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
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/x-stp/rxrecon/internal/dnslib"
)

// Stats holds counters for one run.
type Stats struct {
	StartTime         time.Time
	Certificates      atomic.Int64
	DomainsDiscovered atomic.Int64
	DomainsCollected  atomic.Int64
	Records           atomic.Int64
	EmptyLookups      atomic.Int64
	FailedLookups     atomic.Int64
	RowsExported      atomic.Int64
}

// NewStats returns Stats starting now.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

// addResult folds one domain's outcomes into the counters.
func (s *Stats) addResult(res dnslib.DomainResult) {
	s.DomainsCollected.Add(1)
	for _, o := range res.Outcomes {
		switch o.Status {
		case dnslib.StatusSuccess:
			s.Records.Add(int64(len(o.Rows)))
		case dnslib.StatusEmpty:
			s.EmptyLookups.Add(1)
		case dnslib.StatusFailed:
			s.FailedLookups.Add(1)
		}
	}
}

// FailureRate is the share of lookups that failed outright.
func (s *Stats) FailureRate() float64 {
	total := s.DomainsCollected.Load() * int64(len(dnslib.RecordTypes()))
	if total == 0 {
		return 0
	}
	return float64(s.FailedLookups.Load()) / float64(total)
}

// Fields renders the counters for a closing log line.
func (s *Stats) Fields() logrus.Fields {
	return logrus.Fields{
		"elapsed":            time.Since(s.StartTime).Round(time.Millisecond).String(),
		"certificates":       s.Certificates.Load(),
		"domains_discovered": s.DomainsDiscovered.Load(),
		"domains_collected":  s.DomainsCollected.Load(),
		"records":            s.Records.Load(),
		"empty_lookups":      s.EmptyLookups.Load(),
		"failed_lookups":     s.FailedLookups.Load(),
		"rows_exported":      s.RowsExported.Load(),
	}
}
