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
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/x-stp/rxrecon/internal/certlib"
	"github.com/x-stp/rxrecon/internal/dnslib"
	"github.com/x-stp/rxrecon/internal/metrics"
)

// CertificateSource is the part of certlib.Harvester a run needs.
type CertificateSource interface {
	FetchCertificates(ctx context.Context, domain string) []certlib.Certificate
	DiscoveredDomains() []string
	ValidCertificates(now time.Time) []certlib.Certificate
}

// RecordCollector is the part of dnslib.Collector a run needs.
type RecordCollector interface {
	Collect(ctx context.Context, domain string) dnslib.DomainResult
}

// Recon runs the certificate, DNS and combined modes. Work is done one domain
// at a time; a cancelled context stops the run before the next domain.
type Recon struct {
	certs CertificateSource
	dns   RecordCollector
	log   *logrus.Entry
	stats *Stats
	now   func() time.Time
}

// NewRecon wires a run. log may be nil.
func NewRecon(certs CertificateSource, dns RecordCollector, log *logrus.Entry) *Recon {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Recon{
		certs: certs,
		dns:   dns,
		log:   log.WithField("component", "recon"),
		stats: NewStats(),
		now:   time.Now,
	}
}

// Stats returns the run counters.
func (r *Recon) Stats() *Stats { return r.stats }

// Certificates fetches the certificates for domain. With validOnly set only
// those whose Not After date has not passed are returned.
func (r *Recon) Certificates(ctx context.Context, domain string, validOnly bool) []certlib.Certificate {
	certs := r.certs.FetchCertificates(ctx, domain)
	if validOnly {
		certs = r.certs.ValidCertificates(r.now())
		r.log.WithFields(logrus.Fields{"domain": domain, "valid": len(certs)}).Debug("Filtered to valid certificates")
	}
	r.stats.Certificates.Add(int64(len(certs)))
	return certs
}

// DNS collects records for each domain in order. Results gathered before a
// cancellation are returned.
func (r *Recon) DNS(ctx context.Context, domains []string) []dnslib.DomainResult {
	results := make([]dnslib.DomainResult, 0, len(domains))
	for i, d := range domains {
		if err := ctx.Err(); err != nil {
			r.log.WithFields(logrus.Fields{"done": i, "total": len(domains)}).Warn("DNS collection interrupted")
			break
		}
		res := r.dns.Collect(ctx, d)
		r.stats.addResult(res)
		metrics.ObserveDomainCollected()
		results = append(results, res)
	}
	return results
}

// All discovers names for base through certificate transparency and then
// collects DNS records for the ones inside scope. Discovery finishes before
// the first query is sent.
func (r *Recon) All(ctx context.Context, base string, scope Scope) ([]dnslib.DomainResult, []string) {
	r.certs.FetchCertificates(ctx, base)
	discovered := r.certs.DiscoveredDomains()
	targets := FilterScope(base, discovered, scope)

	r.stats.DomainsDiscovered.Add(int64(len(discovered)))
	metrics.SetDomainsDiscovered(len(discovered))
	r.log.WithFields(logrus.Fields{
		"domain":     base,
		"discovered": len(discovered),
		"in_scope":   len(targets),
		"scope":      string(scope),
	}).Info("Domain discovery finished")

	if len(targets) == 0 {
		return []dnslib.DomainResult{}, targets
	}
	return r.DNS(ctx, targets), targets
}

// SplitDomains splits a comma separated list, trimming blanks and dropping
// empty entries.
func SplitDomains(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
