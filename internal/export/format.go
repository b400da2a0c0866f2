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
	"strings"

	"github.com/pkg/errors"
)

// Format selects an export sink.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatXLSX, FormatSQLite}
}

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q (want json, csv, xlsx or sqlite)", s)
}

// Extension is the file extension written for f.
func (f Format) Extension() string { return string(f) }

// RowOriented reports whether the sink stores flat cells, requiring list
// values to be joined first.
func (f Format) RowOriented() bool { return f != FormatJSON }

func (f Format) String() string { return string(f) }
