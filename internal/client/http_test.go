package client

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
	"net/http"
	"testing"
	"time"
)

func resetClient() {
	sharedClientLock.Lock()
	sharedClient = nil
	clientInitialized = false
	sharedClientLock.Unlock()
}

func TestInitHTTPClientDefaultsZeroValues(t *testing.T) {
	resetClient()

	if err := InitHTTPClient(&Config{}); err != nil {
		t.Fatal(err)
	}
	c := GetHTTPClient()

	tr, ok := c.Transport.(*http.Transport)
	if !ok || tr == nil {
		t.Fatalf("expected *http.Transport, got %T", c.Transport)
	}
	if tr.MaxIdleConnsPerHost != defaultMaxIdleConnsPerHost {
		t.Fatalf("expected MaxIdleConnsPerHost defaulted, got %d", tr.MaxIdleConnsPerHost)
	}
	if c.Timeout != defaultRequestTimeout {
		t.Fatalf("expected request timeout %v, got %v", defaultRequestTimeout, c.Timeout)
	}
}

func TestInitHTTPClientOverrides(t *testing.T) {
	resetClient()

	cfg := DefaultConfig()
	cfg.RequestTimeout = 3 * time.Second
	cfg.Proxy = "http://127.0.0.1:3128"
	if err := InitHTTPClient(cfg); err != nil {
		t.Fatal(err)
	}
	c := GetHTTPClient()
	if c.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v", c.Timeout)
	}
	req, _ := http.NewRequest(http.MethodGet, "https://crt.sh/", nil)
	u, err := c.Transport.(*http.Transport).Proxy(req)
	if err != nil || u == nil || u.Host != "127.0.0.1:3128" {
		t.Fatalf("proxy = %v, %v", u, err)
	}

	if err := InitHTTPClient(&Config{Proxy: "://bad"}); err == nil {
		t.Fatal("expected error for malformed proxy")
	}
}

func TestGetHTTPClientLazyInit(t *testing.T) {
	resetClient()
	a := GetHTTPClient()
	b := GetHTTPClient()
	if a == nil || a != b {
		t.Fatal("expected one shared client")
	}
}
