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

/*
Package client provides the shared HTTP client used for crt.sh requests.

The client is configured once from the loaded configuration and then retrieved by
the harvester, so every search reuses the same pooled transport.
*/

import (
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

var (
	// defaultDialTimeout bounds the TCP connect to crt.sh.
	defaultDialTimeout = 10 * time.Second
	// defaultKeepAliveTimeout is the TCP keep-alive probe interval.
	defaultKeepAliveTimeout = 60 * time.Second
	// defaultIdleConnTimeout closes pooled connections left unused this long.
	defaultIdleConnTimeout = 90 * time.Second
	// defaultMaxIdleConnsPerHost is small: requests are issued one at a time.
	defaultMaxIdleConnsPerHost = 2
	// defaultRequestTimeout is generous; crt.sh renders large result pages slowly.
	defaultRequestTimeout = 60 * time.Second
	// defaultResponseHeaderTimeout bounds the wait for crt.sh to start answering.
	defaultResponseHeaderTimeout = 45 * time.Second

	// sharedClient is handed to every harvester.
	sharedClient *http.Client
	// sharedClientLock guards sharedClient and clientInitialized.
	sharedClientLock sync.RWMutex
	clientInitialized bool
)

// Config tunes the shared client. Zero fields fall back to the defaults above.
type Config struct {
	DialTimeout           time.Duration
	KeepAliveTimeout      time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConnsPerHost   int
	RequestTimeout        time.Duration
	ResponseHeaderTimeout time.Duration
	// Proxy overrides the proxy taken from the environment when set.
	Proxy string
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() *Config {
	return &Config{
		DialTimeout:           defaultDialTimeout,
		KeepAliveTimeout:      defaultKeepAliveTimeout,
		IdleConnTimeout:       defaultIdleConnTimeout,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		RequestTimeout:        defaultRequestTimeout,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
	}
}

// InitHTTPClient (re)builds the shared client from config; nil means DefaultConfig().
// Idle connections of a previous client are closed.
func InitHTTPClient(config *Config) error {
	sharedClientLock.Lock()
	defer sharedClientLock.Unlock()

	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.KeepAliveTimeout == 0 {
		cfg.KeepAliveTimeout = defaultKeepAliveTimeout
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = defaultIdleConnTimeout
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ResponseHeaderTimeout == 0 {
		cfg.ResponseHeaderTimeout = defaultResponseHeaderTimeout
	}

	proxy := http.ProxyFromEnvironment
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return err
		}
		proxy = http.ProxyURL(u)
	}

	// Close idle connections on the old transport before replacing it.
	if sharedClient != nil {
		if oldTransport, ok := sharedClient.Transport.(*http.Transport); ok && oldTransport != nil {
			oldTransport.CloseIdleConnections()
		}
	}

	transport := &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAliveTimeout,
		}).DialContext,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	sharedClient = &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}
	clientInitialized = true
	return nil
}

// GetHTTPClient returns the shared client, building it with defaults on first use.
func GetHTTPClient() *http.Client {
	sharedClientLock.RLock()
	if !clientInitialized {
		sharedClientLock.RUnlock()
		_ = InitHTTPClient(nil) // defaults cannot fail
		sharedClientLock.RLock()
	}
	client := sharedClient
	sharedClientLock.RUnlock()
	return client
}
