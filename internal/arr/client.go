// Copyright (c) 2025-2026, the sweeparr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package arr provides a minimal Sonarr/Radarr/Lidarr API wrapper covering
// the queue and command endpoints the daemon needs. Lidarr speaks the v1
// API, Sonarr and Radarr v3; the version is derived from the instance type.
package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sweeparr/sweeparr/internal/domain"
)

// Config holds the options for constructing a Client.
type Config struct {
	Name       string
	Type       domain.ArrType
	BaseURL    string
	APIKey     string
	Timeout    int
	HTTPClient *http.Client
	UserAgent  string
}

// Client talks to one content-manager instance.
type Client struct {
	name       string
	arrType    domain.ArrType
	baseURL    string
	apiKey     string
	httpClient *http.Client
	userAgent  string
}

// NewClient constructs a new Client using the provided configuration.
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = "sweeparr"
	}

	return &Client{
		name:       cfg.Name,
		arrType:    cfg.Type,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: client,
		userAgent:  ua,
	}
}

// Name returns the configured instance name.
func (c *Client) Name() string { return c.name }

// Type returns the instance type.
func (c *Client) Type() domain.ArrType { return c.arrType }

// QueueRecord is one entry in an Arr download queue. DownloadID carries the
// torrent hash as the download client knows it, usually uppercased.
type QueueRecord struct {
	ID                    int64     `json:"id"`
	DownloadID            string    `json:"downloadId"`
	Title                 string    `json:"title"`
	Status                string    `json:"status"`
	TrackedDownloadStatus string    `json:"trackedDownloadStatus"`
	TrackedDownloadState  string    `json:"trackedDownloadState"`
	OutputPath            string    `json:"outputPath"`
	ErrorMessage          string    `json:"errorMessage"`
	Protocol              string    `json:"protocol"`
	Added                 time.Time `json:"added"`
}

// QueueResponse is the paginated queue payload.
type QueueResponse struct {
	Page         int           `json:"page"`
	PageSize     int           `json:"pageSize"`
	TotalRecords int           `json:"totalRecords"`
	Records      []QueueRecord `json:"records"`
}

// SystemStatus is the subset of system/status used for connectivity checks.
type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}

// GetQueue fetches one page of the instance's download queue.
func (c *Client) GetQueue(ctx context.Context, page, pageSize int) (*QueueResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 1000
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	req, err := c.newRequest(ctx, http.MethodGet, "queue", query, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s queue request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "queue"); err != nil {
		return nil, err
	}

	var payload QueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s queue response: %w", c.name, err)
	}
	return &payload, nil
}

// DeleteQueueItem removes a queue entry. removeFromClient also deletes the
// download (and its files) in the download client; blocklist prevents the
// same release from being grabbed again.
func (c *Client) DeleteQueueItem(ctx context.Context, id int64, removeFromClient, blocklist bool) error {
	query := url.Values{}
	query.Set("removeFromClient", strconv.FormatBool(removeFromClient))
	query.Set("blocklist", strconv.FormatBool(blocklist))

	req, err := c.newRequest(ctx, http.MethodDelete, "queue/"+strconv.FormatInt(id, 10), query, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s queue delete failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	return c.checkStatus(resp, "queue delete")
}

// RunCommand posts a command to the instance, e.g. DownloadedEpisodesScan
// with a path for Sonarr.
func (c *Client) RunCommand(ctx context.Context, name string, params map[string]any) error {
	payload := map[string]any{"name": name}
	for k, v := range params {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s command: %w", c.name, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "command", nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s command request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	return c.checkStatus(resp, "command")
}

// SystemStatus queries system/status, used to verify connectivity and
// credentials without mutating anything.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "system/status", nil, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s status request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "system/status"); err != nil {
		return nil, err
	}

	var payload SystemStatus
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s status response: %w", c.name, err)
	}
	return &payload, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body *bytes.Reader) (*http.Request, error) {
	endpoint, err := url.JoinPath(c.baseURL, "api", c.arrType.APIVersion(), path)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s endpoint: %w", c.name, err)
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.name, err)
	}

	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

func (c *Client) checkStatus(resp *http.Response, operation string) error {
	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s endpoint not found (404)", c.name, operation)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s returned %d for %s (check apiKey)", c.name, resp.StatusCode, operation)
	default:
		return fmt.Errorf("%s unexpected status %d for %s", c.name, resp.StatusCode, operation)
	}
}
