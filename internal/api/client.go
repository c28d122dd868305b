package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to a running daemon's HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for the given bind address or URL. A bare
// host:port is assumed to be plain HTTP.
func NewClient(address, token string) (*Client, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("api address required")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	return &Client{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.getJSON(ctx, "/api/status", &out)
	return out, err
}

// List fetches every media item owned by the caller's tenant.
func (c *Client) List(ctx context.Context) ([]MediaItem, error) {
	var out MediaListResponse
	if err := c.getJSON(ctx, "/api/media", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Show fetches one media item by id.
func (c *Client) Show(ctx context.Context, id string) (MediaItem, error) {
	var out MediaItem
	err := c.getJSON(ctx, "/api/media/"+url.PathEscape(id), &out)
	return out, err
}

// Upload submits a local file for processing and returns the created item.
func (c *Client) Upload(ctx context.Context, path, title, description string) (MediaItem, error) {
	var out MediaItem

	file, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("title", title); err != nil {
		return out, err
	}
	if description != "" {
		if err := form.WriteField("description", description); err != nil {
			return out, err
		}
	}
	part, err := form.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return out, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return out, fmt.Errorf("read upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return out, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/media", &body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	err = c.do(req, &out)
	return out, err
}

// Events opens the caller tenant's server-sent event stream. The caller
// must close the returned reader; cancelling ctx also ends the stream.
func (c *Client) Events(ctx context.Context) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/events", nil)
	if err != nil {
		return nil, err
	}
	// The regular client carries a timeout, which would sever a
	// long-lived event stream.
	stream := &http.Client{}
	resp, err := stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("api %s", resp.Status)
	}
	return resp.Body, nil
}

// Remove deletes a media item and its files.
func (c *Client) Remove(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/media/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	endpoint := *c.base
	endpoint.Path = strings.TrimSuffix(endpoint.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api %s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("api %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode api response: %w", err)
	}
	return nil
}
