package dnslib

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
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

const (
	// DefaultServer is used when no servers are configured and resolv.conf is unusable.
	DefaultServer = "8.8.8.8:53"
	// DefaultTimeout bounds a single exchange with one server.
	DefaultTimeout = 5 * time.Second
	// ResolvConf is the system resolver configuration consulted by default.
	ResolvConf = "/etc/resolv.conf"

	ednsBufferSize = 4096
)

// Resolver answers a single question. Implementations return a *QueryError when
// the lookup yields no data.
type Resolver interface {
	Resolve(ctx context.Context, name string, qtype uint16) ([]dns.RR, error)
}

// ResolverConfig configures a DNSResolver. Zero values select defaults.
type ResolverConfig struct {
	Servers []string
	Timeout time.Duration
}

// DNSResolver is a stub resolver that asks recursive servers over UDP and falls
// back to TCP when a reply is truncated.
type DNSResolver struct {
	servers []string
	udp     *dns.Client
	tcp     *dns.Client
}

// NewDNSResolver builds a resolver from cfg.
func NewDNSResolver(cfg ResolverConfig) *DNSResolver {
	servers := normalizeServers(cfg.Servers)
	if len(servers) == 0 {
		servers = SystemServers(ResolvConf)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DNSResolver{
		servers: servers,
		udp:     &dns.Client{Net: "udp", Timeout: timeout, UDPSize: ednsBufferSize},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

// Servers returns the server addresses in query order.
func (r *DNSResolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// SystemServers reads nameservers from a resolv.conf style file, returning
// DefaultServer when the file is missing or lists none.
func SystemServers(path string) []string {
	conf, err := dns.ClientConfigFromFile(path)
	if err != nil || len(conf.Servers) == 0 {
		return []string{DefaultServer}
	}
	out := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		out = append(out, net.JoinHostPort(s, conf.Port))
	}
	return out
}

func normalizeServers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(strings.Trim(s, "[]"), "53")
		}
		out = append(out, s)
	}
	return out
}

// Resolve asks each configured server in turn until one gives a usable reply.
// NXDOMAIN and empty answers are final; transport failures and error rcodes move
// on to the next server.
func (r *DNSResolver) Resolve(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(ednsBufferSize, false)

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, NewQueryError(name, qtype, KindNone, err)
		}
		resp, err := r.exchange(ctx, msg, server)
		if err != nil {
			lastErr = errors.Wrapf(err, "exchange with %s", server)
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
			answers := filterAnswers(resp.Answer, qtype)
			if len(answers) == 0 {
				return nil, NewQueryError(name, qtype, KindNoAnswer, ErrNoAnswer)
			}
			return answers, nil
		case dns.RcodeNameError:
			return nil, NewQueryError(name, qtype, KindNameNotFound, ErrNameNotFound)
		default:
			lastErr = errors.Errorf("%s answered %s", server, dns.RcodeToString[resp.Rcode])
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no nameservers configured")
	}
	return nil, NewQueryError(name, qtype, KindNone, lastErr)
}

func (r *DNSResolver) exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	resp, _, err := r.udp.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, err
	}
	if resp.Truncated {
		resp, _, err = r.tcp.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// filterAnswers keeps only records of the asked type, dropping CNAME chain links
// and signatures the server included alongside.
func filterAnswers(answers []dns.RR, qtype uint16) []dns.RR {
	out := make([]dns.RR, 0, len(answers))
	for _, rr := range answers {
		if rr.Header().Rrtype == qtype {
			out = append(out, rr)
		}
	}
	return out
}
