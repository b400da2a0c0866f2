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
	"regexp"
	"sort"
	"strings"
)

// GlueRule names a domain suffix that crt.sh output is known to concatenate with
// the following name.
type GlueRule struct {
	Suffix  string `yaml:"suffix"`
	Enabled bool   `yaml:"enabled"`
}

// DefaultGlueRules is the repair set used when none is configured.
var DefaultGlueRules = []GlueRule{{Suffix: "aragon.es", Enabled: true}}

// domainPattern matches dot separated labels of letters, digits and hyphens.
var domainPattern = regexp.MustCompile(`\b((?:[A-Za-z0-9-]+\.)+[A-Za-z0-9-]+)\b`)

// Repairer splits names glued to a known suffix by inserting a space after the
// suffix whenever a letter or digit follows it directly.
type Repairer struct {
	suffixes []string
}

// NewRepairer returns a Repairer for the enabled rules. Suffixes containing
// whitespace are ignored.
func NewRepairer(rules []GlueRule) *Repairer {
	r := &Repairer{}
	for _, rule := range rules {
		if !rule.Enabled || rule.Suffix == "" || strings.ContainsAny(rule.Suffix, " \t\r\n") {
			continue
		}
		r.suffixes = append(r.suffixes, rule.Suffix)
	}
	return r
}

// Suffixes returns the active suffixes in application order.
func (r *Repairer) Suffixes() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.suffixes...)
}

// Repair applies every active suffix in turn. A nil Repairer returns text unchanged.
// Repairing already repaired text is a no-op.
func (r *Repairer) Repair(text string) string {
	if r == nil {
		return text
	}
	for _, suffix := range r.suffixes {
		text = splitAfter(text, suffix)
	}
	return text
}

func splitAfter(text, suffix string) string {
	if !strings.Contains(text, suffix) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	i := 0
	for {
		j := strings.Index(text[i:], suffix)
		if j < 0 {
			b.WriteString(text[i:])
			return b.String()
		}
		end := i + j + len(suffix)
		b.WriteString(text[i:end])
		if end < len(text) && isNameStart(text[end]) {
			b.WriteByte(' ')
		}
		i = end
	}
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// ExtractDomains returns the domain shaped substrings of text in order of appearance.
func ExtractDomains(text string) []string {
	found := domainPattern.FindAllString(text, -1)
	if found == nil {
		return []string{}
	}
	return found
}

// DiscoveredDomains unions the identity names of all certs into a sorted set.
// Names compare exactly; no case or dot normalization is applied.
func DiscoveredDomains(certs []Certificate) []string {
	set := make(map[string]struct{})
	for _, c := range certs {
		for _, d := range c.Domains() {
			set[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// NormalizeDomain standardizes domain names.
func NormalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.ContainsAny(domain, " \t\n") {
		return ""
	}
	domain = strings.ToLower(domain)
	domain = strings.Trim(domain, ".")
	if domain == "" {
		return ""
	}
	for part := range strings.SplitSeq(domain, ".") {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return ""
		}
		if strings.HasPrefix(part, "*") && part != "*" {
			return ""
		}
	}
	return domain
}
