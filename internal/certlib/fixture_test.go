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

import "strings"

// searchPage mimics the layout of a crt.sh search result page.
func searchPage(rows ...string) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>crt.sh | example</title></head><body>
<table>
  <tr><th class="outer">Criteria</th><td class="outer">Type: Identity</td></tr>
</table>
<table>
  <tr>
    <th class="outer">Certificates</th>
    <td class="outer">
      <table>
        <tr>
          <th>crt.sh ID</th>
          <th><a href="?sort=1">Logged At</a>&nbsp;&#8679;</th>
          <th>Not Before</th>
          <th>Not After</th>
          <th>Common Name</th>
          <th>Matching Identities</th>
          <th>Issuer Name</th>
        </tr>
`)
	for _, r := range rows {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	b.WriteString(`      </table>
    </td>
  </tr>
</table>
</body></html>`)
	return b.String()
}

func certRow(id, notAfter, cn, identities string) string {
	return `<tr><td><a href="?id=` + id + `">` + id + `</a></td><td>2024-01-01</td><td>2024-01-01</td><td>` +
		notAfter + `</td><td>` + cn + `</td><td>` + identities + `</td><td>C=US, O=Let's Encrypt, CN=R3</td></tr>`
}

const malformedRow = `<tr><td colspan="7">partial row</td></tr>`
