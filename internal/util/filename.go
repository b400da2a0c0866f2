package util

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
	"path/filepath"
	"strings"
	"unicode"
)

// maxBaseLength keeps generated names well under common filesystem limits.
const maxBaseLength = 100

// DefaultPrefix is used when a prefix sanitises to nothing.
const DefaultPrefix = "output"

// SanitizeFilename makes a single path element safe to create: separators,
// reserved characters and control characters become underscores, surrounding
// spaces and dots are trimmed and the result is length limited.
func SanitizeFilename(input string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, input)
	replaced = strings.Trim(replaced, " .")
	if len(replaced) > maxBaseLength {
		replaced = replaced[:maxBaseLength]
	}
	return replaced
}

// OutputPath builds "<dir>/<base>.<ext>" from a user supplied prefix. Only the
// last element of prefix is sanitised, so directories may be given.
func OutputPath(prefix, ext string) string {
	dir, base := filepath.Split(prefix)
	base = SanitizeFilename(base)
	if base == "" {
		base = DefaultPrefix
	}
	return filepath.Join(dir, base+"."+strings.TrimPrefix(ext, "."))
}
