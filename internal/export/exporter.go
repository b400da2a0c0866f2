package export

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
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/x-stp/rxrecon/internal/metrics"
	"github.com/x-stp/rxrecon/internal/util"
)

// ErrNotDocumentFormat is returned when a nested document is exported to a row format.
var ErrNotDocumentFormat = errors.New("nested documents can only be exported as json")

// Exporter writes row sets to files of one format.
type Exporter struct {
	format Format
	runID  string
	log    *logrus.Entry
}

// NewExporter returns an Exporter for format. runID is recorded by sinks that
// keep metadata.
func NewExporter(format Format, runID string, log *logrus.Entry) *Exporter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Exporter{format: format, runID: runID, log: log.WithField("format", string(format))}
}

// Format returns the exporter's format.
func (e *Exporter) Format() Format { return e.format }

// Path returns the file written for prefix.
func (e *Exporter) Path(prefix string) string {
	return util.OutputPath(prefix, e.format.Extension())
}

// ExportRows writes rows to "<prefix>.<ext>" and returns the path. An empty row
// set is logged and writes nothing. source labels the data ("dns",
// "certificates") in sinks that keep metadata.
func (e *Exporter) ExportRows(prefix, source string, rows []Row) (string, error) {
	if len(rows) == 0 {
		e.log.WithField("source", source).Warn("No data to export")
		return "", nil
	}
	if e.format.RowOriented() {
		rows = Flatten(rows)
	}
	path := e.Path(prefix)
	done := metrics.MeasureDuration(metrics.GetMetrics().ExportWriteDuration, prometheus.Labels{"format": string(e.format)})

	var (
		size int64
		err  error
	)
	switch e.format {
	case FormatJSON:
		size, err = writeJSON(path, rows)
	case FormatCSV:
		size, err = writeCSV(path, rows)
	case FormatXLSX:
		size, err = writeXLSX(path, rows)
	case FormatSQLite:
		size, err = writeSQLite(path, rows, sqliteMeta{RunID: e.runID, Source: source})
	default:
		err = errors.Wrapf(ErrUnknownFormat, "%q", string(e.format))
	}
	done()
	metrics.ObserveExport(string(e.format), len(rows), size, err)
	if err != nil {
		return "", errors.Wrapf(err, "export %s", path)
	}
	e.log.WithFields(logrus.Fields{"path": path, "rows": len(rows), "bytes": size}).Info("Data exported")
	return path, nil
}

// ExportDocument writes doc as JSON to "<prefix>.json". count is the number of
// top level entries, used for logging and the empty check.
func (e *Exporter) ExportDocument(prefix, source string, doc any, count int) (string, error) {
	if e.format != FormatJSON {
		return "", ErrNotDocumentFormat
	}
	if count == 0 {
		e.log.WithField("source", source).Warn("No data to export")
		return "", nil
	}
	path := e.Path(prefix)
	size, err := writeJSON(path, doc)
	metrics.ObserveExport(string(e.format), count, size, err)
	if err != nil {
		return "", errors.Wrapf(err, "export %s", path)
	}
	e.log.WithFields(logrus.Fields{"path": path, "entries": count, "bytes": size}).Info("Data exported")
	return path, nil
}
