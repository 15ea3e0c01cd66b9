// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clients holds the thin HTTP clients for the ML sidecar services
// the analysis pipeline delegates to (scene segmentation, audio analysis,
// frame embedding), plus the local ffprobe wrapper for metadata extraction.
// Each client implements one of the analyzers capability interfaces.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTP is the shared transport for all sidecar clients. Sidecar calls can
// run for minutes on long videos, so the per-request timeout is generous
// and configurable while connection setup stays tight.
type HTTP struct{ c *http.Client }

// NewHTTP builds the shared client. timeout bounds a full request; zero
// falls back to thirty minutes.
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   1 * time.Minute,
			KeepAlive: 3 * time.Minute,
		}).DialContext,
		MaxIdleConns:        128,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     2 * time.Minute,
		TLSHandshakeTimeout: 1 * time.Minute,
	}
	return &HTTP{
		c: &http.Client{
			Transport: tr,
			Timeout:   timeout,
		},
	}
}

// postJSON posts in as a JSON body to url and decodes the JSON response
// into out. Non-200 responses surface the first few KB of the body as the
// error message.
func (h *HTTP) postJSON(ctx context.Context, url string, in any, out any) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		lb := io.LimitReader(resp.Body, maxErr)
		body, _ := io.ReadAll(lb)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
