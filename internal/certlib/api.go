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
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/x-stp/rxrecon/internal/metrics"
)

// Defaults for the crt.sh search endpoint.
const (
	DefaultSearchURL = "https://crt.sh/"
	DefaultUserAgent = "rxrecon/1.0 (+https://github.com/x-stp/rxrecon)"
	DefaultTimeout   = 30 * time.Second
	// DefaultMaxBodySize bounds a search page; large domains produce pages of several MB.
	DefaultMaxBodySize = 64 << 20
)

// HarvesterConfig configures a Harvester. Zero values select defaults, except
// ExcludeExpired which callers set explicitly.
type HarvesterConfig struct {
	SearchURL      string
	ExcludeExpired bool
	UserAgent      string
	Timeout        time.Duration
	MaxBodySize    int
	GlueRules      []GlueRule
}

// DefaultHarvesterConfig returns the configuration used by the CLI without a config file.
func DefaultHarvesterConfig() HarvesterConfig {
	return HarvesterConfig{
		SearchURL:      DefaultSearchURL,
		ExcludeExpired: true,
		UserAgent:      DefaultUserAgent,
		Timeout:        DefaultTimeout,
		MaxBodySize:    DefaultMaxBodySize,
		GlueRules:      DefaultGlueRules,
	}
}

// Harvester fetches the certificates crt.sh lists for a domain. It keeps the
// collection of the most recent fetch; each fetch replaces it.
type Harvester struct {
	cfg          HarvesterConfig
	repairer     *Repairer
	httpClient   *http.Client
	log          *logrus.Entry
	certificates []Certificate
}

// NewHarvester returns a Harvester sending requests through httpClient.
// A nil httpClient selects http.DefaultClient.
func NewHarvester(cfg HarvesterConfig, httpClient *http.Client, log *logrus.Entry) *Harvester {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.GlueRules == nil {
		cfg.GlueRules = DefaultGlueRules
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Harvester{
		cfg:        cfg,
		repairer:   NewRepairer(cfg.GlueRules),
		httpClient: httpClient,
		log:        log,
	}
}

// SearchURL returns the search page address for domain.
func (h *Harvester) SearchURL(domain string) (string, error) {
	u, err := url.Parse(h.cfg.SearchURL)
	if err != nil {
		return "", errors.Wrap(err, "parse search url")
	}
	q := u.Query()
	q.Set("q", domain)
	if h.cfg.ExcludeExpired {
		q.Set("exclude", "expired")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchCertificates replaces the current collection with the certificates listed
// for domain and returns it. Any transport, status or page structure problem is
// logged and yields an empty collection.
func (h *Harvester) FetchCertificates(ctx context.Context, domain string) []Certificate {
	h.certificates = []Certificate{}
	log := h.log.WithField("domain", domain)
	log.Info("Fetching certificates from crt.sh")

	target, err := h.SearchURL(domain)
	if err != nil {
		log.WithError(err).Error("Invalid search URL")
		return h.certificates
	}

	start := time.Now()
	status, body, err := h.fetch(ctx, target)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveCTRequest("error", elapsed)
		log.WithError(err).Warn("crt.sh request failed")
		return h.certificates
	}
	metrics.ObserveCTRequest(strconv.Itoa(status), elapsed)
	if status != http.StatusOK {
		log.WithField("status", status).Warn("crt.sh answered with unexpected status")
		return h.certificates
	}

	if len(body) >= h.cfg.MaxBodySize {
		log.WithField("max_body_size", h.cfg.MaxBodySize).Warn("crt.sh page reached the body size limit and was truncated")
	}

	certs, stats, err := ParseCertificates(bytes.NewReader(body), h.repairer)
	if err != nil {
		log.WithError(err).Warn("Could not locate the certificates table")
		return h.certificates
	}
	metrics.ObserveCTRows(len(certs), stats.Skipped)
	log.WithFields(logrus.Fields{
		"certificates": len(certs),
		"skipped_rows": stats.Skipped,
		"duplicates":   stats.Duplicates,
	}).Info("Certificates parsed")

	h.certificates = certs
	return h.certificates
}

// fetch performs the single GET for target. Non-2xx answers are returned with
// their status rather than as errors.
func (h *Harvester) fetch(ctx context.Context, target string) (int, []byte, error) {
	c := colly.NewCollector(
		colly.UserAgent(h.cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(h.cfg.MaxBodySize),
		colly.StdlibContext(ctx),
	)
	// SetRequestTimeout mutates the client it is given.
	hc := *h.httpClient
	hc.Timeout = h.cfg.Timeout
	c.SetClient(&hc)

	var (
		status int
		body   []byte
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	if err := c.Visit(target); err != nil {
		return status, nil, errors.Wrap(err, "visit")
	}
	return status, body, nil
}

// Certificates returns the collection of the most recent fetch.
func (h *Harvester) Certificates() []Certificate {
	return h.certificates
}

// DiscoveredDomains returns the sorted set of names in the current collection.
func (h *Harvester) DiscoveredDomains() []string {
	return DiscoveredDomains(h.certificates)
}

// ValidCertificates returns the certificates of the current collection valid at now.
func (h *Harvester) ValidCertificates(now time.Time) []Certificate {
	return ValidCertificates(h.certificates, now)
}
