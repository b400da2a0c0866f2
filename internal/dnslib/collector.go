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
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/x-stp/rxrecon/internal/metrics"
)

// Limiter paces outgoing queries. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Collector queries every catalogue record type for a domain.
type Collector struct {
	resolver    Resolver
	limiter     Limiter
	log         *logrus.Entry
	nsec3AsNSEC bool
}

// Option configures a Collector.
type Option func(*Collector)

// WithLimiter paces each query through l.
func WithLimiter(l Limiter) Option {
	return func(c *Collector) { c.limiter = l }
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Collector) {
		if log != nil {
			c.log = log
		}
	}
}

// WithNSEC3AsNSEC makes the NSEC3 slot ask for NSEC records instead. Rows found
// that way are labelled NSEC.
func WithNSEC3AsNSEC(enabled bool) Option {
	return func(c *Collector) { c.nsec3AsNSEC = enabled }
}

// NewCollector returns a Collector asking r.
func NewCollector(r Resolver, opts ...Option) *Collector {
	c := &Collector{
		resolver: r,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect looks up every catalogue record type for domain. It never fails as a
// whole: each type's failure is confined to its own Outcome.
func (c *Collector) Collect(ctx context.Context, domain string) DomainResult {
	log := c.log.WithField("domain", domain)
	log.Info("Collecting DNS records")

	types := RecordTypes()
	res := DomainResult{Domain: domain, Outcomes: make([]Outcome, 0, len(types))}
	for _, t := range types {
		res.Outcomes = append(res.Outcomes, c.lookup(ctx, log, domain, t))
	}
	log.WithField("rows", res.RowCount()).Debug("DNS collection finished")
	return res
}

// queried returns the type actually put on the wire for slot t.
func (c *Collector) queried(t RecordType) RecordType {
	if c.nsec3AsNSEC && t == NSEC3 {
		return NSEC
	}
	return t
}

func (c *Collector) lookup(ctx context.Context, log *logrus.Entry, domain string, t RecordType) Outcome {
	asked := c.queried(t)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.finish(log, Outcome{Type: t, Status: StatusFailed, Kind: KindOther, Rows: []Row{}, Err: err}, 0)
		}
	}

	start := time.Now()
	answers, err := c.resolver.Resolve(ctx, domain, asked.Code())
	elapsed := time.Since(start)
	if err != nil {
		kind := Classify(err)
		status := StatusFailed
		if kind.Empty() {
			status = StatusEmpty
		}
		return c.finish(log, Outcome{Type: t, Status: status, Kind: kind, Rows: []Row{}, Err: err}, elapsed)
	}

	rows := Decode(domain, asked, answers)
	if len(rows) == 0 {
		return c.finish(log, Outcome{Type: t, Status: StatusEmpty, Kind: KindNoAnswer, Rows: rows}, elapsed)
	}
	return c.finish(log, Outcome{Type: t, Status: StatusSuccess, Kind: KindNone, Rows: rows}, elapsed)
}

func (c *Collector) finish(log *logrus.Entry, o Outcome, elapsed time.Duration) Outcome {
	metrics.ObserveDNSQuery(string(o.Type), o.Status.String(), o.Kind.String(), elapsed)
	metrics.ObserveDNSRows(string(o.Type), len(o.Rows))
	entry := log.WithFields(logrus.Fields{"type": o.Type, "status": o.Status, "rows": len(o.Rows)})
	switch o.Status {
	case StatusFailed:
		entry.WithError(o.Err).WithField("kind", o.Kind).Warn("DNS query failed")
	case StatusEmpty:
		entry.WithField("kind", o.Kind).Debug("No records")
	default:
		entry.Debug("Records resolved")
	}
	return o
}
