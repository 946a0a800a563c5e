/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package generate is the HTTP client for the slide generation service.
package generate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"carouselstudio/internal/deck"
	applog "carouselstudio/internal/log"
)

// APIKeyHeader carries the user's model API key to the service.
const APIKeyHeader = "x-gemini-api-key"

const maxResponseBytes = 8 << 20

// Client talks to the generation service. The zero timeout means 60s.
type Client struct {
	BaseURL string
	Timeout time.Duration
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		client:  &http.Client{},
		log:     applog.WithComponent("generate"),
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

type generateRequest struct {
	Topic string `json:"topic"`
	Days  int    `json:"days"`
}

type ideasRequest struct {
	Topic string `json:"topic"`
}

type generateResponse struct {
	Data []deck.Slide `json:"data"`
}

type ideasResponse struct {
	Data []json.RawMessage `json:"data"`
}

type detailBody struct {
	Detail string `json:"detail"`
}

// Generate requests a deck of days slides about topic. apiKey is sent only
// when non-empty. The call is bounded by the client timeout and by ctx;
// cancellation of ctx by a newer request surfaces as KindSuperseded when the
// cause is ErrSuperseded.
func (c *Client) Generate(ctx context.Context, topic string, days int, apiKey string) ([]deck.Slide, error) {
	body, rid, err := c.post(ctx, "/generate", generateRequest{Topic: topic, Days: days}, apiKey)
	if err != nil {
		return nil, err
	}
	if err := validateGenerate(body); err != nil {
		return nil, &Error{Kind: KindMalformed, RequestID: rid, Err: err}
	}
	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &Error{Kind: KindMalformed, RequestID: rid, Err: err}
	}
	if out.Data == nil {
		out.Data = []deck.Slide{}
	}
	c.log.Info("deck generated", slog.String("request_id", rid), slog.Int("slides", len(out.Data)))
	return out.Data, nil
}

// GenerateIdeas asks the service for topic suggestions. Items may be plain
// strings or objects with a title.
func (c *Client) GenerateIdeas(ctx context.Context, topic, apiKey string) ([]string, error) {
	body, rid, err := c.post(ctx, "/generate-ideas", ideasRequest{Topic: topic}, apiKey)
	if err != nil {
		return nil, err
	}
	if err := validateIdeas(body); err != nil {
		return nil, &Error{Kind: KindMalformed, RequestID: rid, Err: err}
	}
	var out ideasResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &Error{Kind: KindMalformed, RequestID: rid, Err: err}
	}
	ideas := make([]string, 0, len(out.Data))
	for _, raw := range out.Data {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			ideas = append(ideas, s)
			continue
		}
		var obj struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, &Error{Kind: KindMalformed, RequestID: rid, Err: err}
		}
		ideas = append(ideas, obj.Title)
	}
	return ideas, nil
}

// Ping checks that the service answers on its root route.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return classify(ctx, err, "")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Kind: KindStatus, Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, apiKey string) ([]byte, string, error) {
	rid := uuid.NewString()
	l := c.log.With(slog.String("path", path), slog.String("request_id", rid))

	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, rid, &Error{Kind: KindNetwork, RequestID: rid, Err: err}
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, rid, &Error{Kind: KindMalformed, RequestID: rid, Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
	if err != nil {
		return nil, rid, &Error{Kind: KindNetwork, RequestID: rid, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", rid)
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		gerr := classify(ctx, err, rid)
		l.Warn("request failed", slog.Any("err", gerr))
		return nil, rid, gerr
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, rid, classify(ctx, err, rid)
	}
	l.Debug("response", slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var d detailBody
		_ = json.Unmarshal(body, &d)
		gerr := &Error{Kind: KindStatus, Status: resp.StatusCode, Detail: d.Detail, RequestID: rid}
		l.Warn("service error", slog.Int("status", resp.StatusCode), slog.String("detail", d.Detail))
		return nil, rid, gerr
	}
	return body, rid, nil
}

// classify maps a transport error to a Kind. A context cancelled with cause
// ErrSuperseded is KindSuperseded; any deadline is KindTimeout.
func classify(ctx context.Context, err error, rid string) *Error {
	if errors.Is(context.Cause(ctx), ErrSuperseded) {
		return &Error{Kind: KindSuperseded, RequestID: rid, Err: err}
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, RequestID: rid, Err: err}
	}
	return &Error{Kind: KindNetwork, RequestID: rid, Err: err}
}
