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
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/x-stp/rxrecon/internal/certlib"
)

// Scope selects which discovered names are followed up with DNS collection.
type Scope string

const (
	// ScopeAll keeps every discovered name.
	ScopeAll Scope = "all"
	// ScopeRegistrable keeps names sharing the base domain's registrable domain (eTLD+1).
	ScopeRegistrable Scope = "registrable"
)

var ErrUnknownScope = errors.New("unknown scope")

// ParseScope accepts "all", "registrable" or an empty string meaning all.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeRegistrable:
		return ScopeRegistrable, nil
	}
	return "", errors.Wrapf(ErrUnknownScope, "%q (want all or registrable)", s)
}

// FilterScope returns the names of discovered that fall inside scope for base,
// keeping their order.
func FilterScope(base string, discovered []string, scope Scope) []string {
	if scope != ScopeRegistrable {
		return append([]string(nil), discovered...)
	}
	want := registrable(base)
	if want == "" {
		return []string{}
	}
	out := make([]string, 0, len(discovered))
	for _, name := range discovered {
		if registrable(name) == want {
			out = append(out, name)
		}
	}
	return out
}

func registrable(name string) string {
	n := certlib.NormalizeDomain(name)
	if n == "" {
		return ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(n)
	if err != nil {
		return ""
	}
	return etld1
}
