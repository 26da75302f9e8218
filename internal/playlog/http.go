/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/friendsincode/godspeed/internal/models"
)

// LogPlayPath is the catalog endpoint that records a play.
const LogPlayPath = "/godspeed/log_play"

// HTTPSink posts plays to the catalog service.
type HTTPSink struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSink creates a sink posting to baseURL + LogPlayPath.
func NewHTTPSink(baseURL string, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSink{
		endpoint: strings.TrimRight(baseURL, "/") + LogPlayPath,
		client:   client,
	}
}

// Name implements Sink.
func (s *HTTPSink) Name() string { return "http" }

// Deliver implements Sink.
func (s *HTTPSink) Deliver(ctx context.Context, record models.PlayRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal play: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post play: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post play: unexpected status %d", resp.StatusCode)
	}
	return nil
}
