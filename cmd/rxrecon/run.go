package main

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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/x-stp/rxrecon/internal/certlib"
	"github.com/x-stp/rxrecon/internal/client"
	"github.com/x-stp/rxrecon/internal/config"
	"github.com/x-stp/rxrecon/internal/core"
	"github.com/x-stp/rxrecon/internal/dnslib"
	"github.com/x-stp/rxrecon/internal/export"
)

const (
	certificatePreview = 3
	rowPreview         = 10
)

// Mode names, also used as output prefix suffixes when several run at once.
const (
	modeCertificate = "crt"
	modeDNS         = "dns"
	modeAll         = "all"
)

type app struct {
	cfg      config.Config
	opts     *options
	log      *logrus.Entry
	out      io.Writer
	exporter *export.Exporter
	recon    *core.Recon
}

func runModes(cmd *cobra.Command, opts *options) error {
	scope, err := core.ParseScope(opts.scope)
	if err != nil {
		return err
	}
	a, ctx, cleanup, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer cleanup()
	if opts.nested && a.exporter != nil && a.exporter.Format() != export.FormatJSON {
		return export.ErrNotDocumentFormat
	}

	if err := client.InitHTTPClient(&client.Config{RequestTimeout: a.cfg.CrtSh.Timeout}); err != nil {
		return errors.Wrap(err, "http client")
	}
	harvester := certlib.NewHarvester(a.cfg.HarvesterConfig(), client.GetHTTPClient(), a.log.WithField("component", "crtsh"))
	resolver := dnslib.NewDNSResolver(a.cfg.ResolverConfig())
	collector := dnslib.NewCollector(resolver,
		dnslib.WithLimiter(core.NewPacer(a.cfg.Resolver.QPS)),
		dnslib.WithLogger(a.log.WithField("component", "dns")),
		dnslib.WithNSEC3AsNSEC(a.cfg.Resolver.NSEC3AsNSEC),
	)
	a.recon = core.NewRecon(harvester, collector, a.log)
	a.log.WithField("servers", resolver.Servers()).Debug("Resolver configured")

	multi := countModes(opts) > 1
	if opts.certificate != "" {
		if err := a.runCertificate(ctx, opts.certificate, outputPrefix(a.cfg.Export.Prefix, modeCertificate, multi)); err != nil {
			return err
		}
	}
	if opts.dnsinfo != "" {
		domains := core.SplitDomains(opts.dnsinfo)
		results := a.recon.DNS(ctx, domains)
		if err := a.emitDNS(results, outputPrefix(a.cfg.Export.Prefix, modeDNS, multi), modeDNS); err != nil {
			return err
		}
	}
	if opts.allinfo != "" {
		fmt.Fprintf(a.out, "Searching related domains for %s\n", opts.allinfo)
		results, targets := a.recon.All(ctx, opts.allinfo, scope)
		fmt.Fprintf(a.out, "Collected DNS records for %d related domains\n", len(targets))
		if err := a.emitDNS(results, outputPrefix(a.cfg.Export.Prefix, modeAll, multi), modeAll); err != nil {
			return err
		}
	}

	a.log.WithFields(a.recon.Stats().Fields()).Info("Run finished")
	return errors.Wrap(ctx.Err(), "run interrupted")
}

func (a *app) runCertificate(ctx context.Context, domain, prefix string) error {
	fmt.Fprintf(a.out, "Searching certificates for %s\n", domain)
	certs := a.recon.Certificates(ctx, domain, a.opts.validOnly)
	fmt.Fprintf(a.out, "Found %d certificates for %s\n", len(certs), domain)

	rows := export.CertificateRows(certs)
	if a.exporter == nil {
		return previewRows(a.out, rows, certificatePreview)
	}
	return a.export(prefix, modeCertificate, rows)
}

// emitDNS writes DNS results as rows, or as one document per domain with --nested.
func (a *app) emitDNS(results []dnslib.DomainResult, prefix, source string) error {
	if a.opts.nested {
		if a.exporter == nil {
			return previewDocuments(a.out, results, rowPreview)
		}
		path, err := a.exporter.ExportDocument(prefix, source, results, len(results))
		if err != nil {
			return err
		}
		a.reportPath(path)
		return nil
	}
	rows := export.ExpandDNSResults(results)
	if a.exporter == nil {
		return previewRows(a.out, rows, rowPreview)
	}
	return a.export(prefix, source, rows)
}

func (a *app) export(prefix, source string, rows []export.Row) error {
	path, err := a.exporter.ExportRows(prefix, source, rows)
	if err != nil {
		return err
	}
	if a.recon != nil {
		a.recon.Stats().RowsExported.Add(int64(len(rows)))
	}
	a.reportPath(path)
	return nil
}

func (a *app) reportPath(path string) {
	if path == "" {
		fmt.Fprintln(a.out, "No data to export")
		return
	}
	fmt.Fprintf(a.out, "Exported to %s\n", path)
}

func runConvert(cmd *cobra.Command, opts *options) error {
	a, _, cleanup, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Open(opts.input)
	if err != nil {
		return errors.Wrap(err, "open input")
	}
	defer f.Close()
	docs, err := export.ReadDecoded(f)
	if err != nil {
		return err
	}
	rows := export.ExpandDecoded(docs)
	a.log.WithFields(logrus.Fields{"input": opts.input, "documents": len(docs), "rows": len(rows)}).Info("Input expanded")
	if a.exporter == nil {
		return previewRows(a.out, rows, rowPreview)
	}
	return a.export(a.cfg.Export.Prefix, "convert", rows)
}

func countModes(opts *options) int {
	n := 0
	for _, m := range []string{opts.certificate, opts.dnsinfo, opts.allinfo} {
		if m != "" {
			n++
		}
	}
	return n
}

// outputPrefix appends the mode name when several modes write in one run.
func outputPrefix(prefix, mode string, multi bool) string {
	if !multi {
		return prefix
	}
	return prefix + "-" + mode
}

func previewRows(w io.Writer, rows []export.Row, limit int) error {
	if len(rows) < limit {
		limit = len(rows)
	}
	for _, r := range rows[:limit] {
		if err := printLine(w, r); err != nil {
			return err
		}
	}
	return nil
}

func previewDocuments(w io.Writer, results []dnslib.DomainResult, limit int) error {
	if len(results) < limit {
		limit = len(results)
	}
	for _, r := range results[:limit] {
		if err := printLine(w, r); err != nil {
			return err
		}
	}
	return nil
}

// printLine writes v as one line of JSON, leaving &, < and > unescaped.
func printLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return errors.Wrap(enc.Encode(v), "preview")
}
