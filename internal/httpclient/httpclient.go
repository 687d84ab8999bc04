// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package httpclient builds *http.Client values scoped to a single
// configuration instead of mutating the process-wide HTTP_PROXY /
// HTTPS_PROXY environment variables the default transport reads. The
// teacher's outbound HTTP calls (internal/embeddings/openai.go,
// internal/ai/openai.go) all used http.DefaultClient directly, which meant
// a proxy configured for one downstream call leaked into every other
// goroutine's requests. New builds a dedicated *http.Transport per caller.
package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/northbound-system/kb-ingest/internal/config"
)

// New builds an *http.Client honoring cfg.Proxy without touching global
// process state. A request whose host matches an Exclude entry bypasses
// the proxy.
func New(cfg config.ProxyConfig, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{}

	if cfg.Enabled && cfg.URL != "" {
		proxyURL, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy url %q: %w", cfg.URL, err)
		}
		exclude := cfg.Exclude
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			host := req.URL.Hostname()
			for _, ex := range exclude {
				if ex == "" {
					continue
				}
				if host == ex || strings.HasSuffix(host, "."+ex) {
					return nil, nil
				}
			}
			return proxyURL, nil
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
