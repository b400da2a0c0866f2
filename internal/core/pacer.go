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

/*
Package core ties the DNS collector and the certificate harvester together into
the three run modes and keeps per-run statistics.
*/

import (
	"golang.org/x/time/rate"

	"github.com/x-stp/rxrecon/internal/dnslib"
)

// NewPacer returns a limiter allowing qps DNS queries per second with a burst of
// one. It returns nil when qps is not positive, leaving queries unpaced.
func NewPacer(qps float64) dnslib.Limiter {
	if qps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(qps), 1)
}
