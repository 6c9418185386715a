// Package registryctl is the command-line client for the registry HTTP API.
package registryctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"atelier/internal/registry/handler"
	"atelier/pkg/domain"
)

// APIError is a non-2xx response from the registry.
type APIError struct {
	Status      int    `json:"-"`
	Category    string `json:"error"`
	Description string `json:"error_description"`
	Code        int    `json:"code"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code %d)", e.Category, e.Description, e.Code)
	}
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Category, e.Description)
	}
	return fmt.Sprintf("registry returned status %d", e.Status)
}

// Client calls the registry HTTP API as one caller.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient replaces the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

type MintParams struct {
	URI               string
	Description       string
	License           string
	RoyaltyRecipient  domain.Address
	RoyaltyPercentage uint32
}

func (c *Client) Mint(ctx context.Context, p MintParams) (domain.TokenID, error) {
	var resp handler.MintResponse
	err := c.do(ctx, http.MethodPost, "/tokens", map[string]any{
		"uri":                p.URI,
		"description":        p.Description,
		"license":            p.License,
		"royalty_recipient":  p.RoyaltyRecipient.String(),
		"royalty_percentage": p.RoyaltyPercentage,
	}, &resp)
	return resp.TokenID, err
}

func (c *Client) Transfer(ctx context.Context, id domain.TokenID, recipient domain.Address) error {
	return c.do(ctx, http.MethodPost, tokenPath(id, "transfer"), map[string]string{"recipient": recipient.String()}, nil)
}

func (c *Client) Approve(ctx context.Context, id domain.TokenID, operator domain.Address) error {
	return c.do(ctx, http.MethodPost, tokenPath(id, "approval"), map[string]string{"operator": operator.String()}, nil)
}

func (c *Client) RevokeApproval(ctx context.Context, id domain.TokenID) error {
	return c.do(ctx, http.MethodDelete, tokenPath(id, "approval"), nil, nil)
}

func (c *Client) Burn(ctx context.Context, id domain.TokenID) error {
	return c.do(ctx, http.MethodDelete, tokenPath(id, ""), nil, nil)
}

func (c *Client) UpdateMetadata(ctx context.Context, id domain.TokenID, uri, description, license string) (uint32, error) {
	var resp handler.VersionResponse
	err := c.do(ctx, http.MethodPut, tokenPath(id, "metadata"), map[string]string{
		"uri":         uri,
		"description": description,
		"license":     license,
	}, &resp)
	return resp.Version, err
}

func (c *Client) FreezeMetadata(ctx context.Context, id domain.TokenID) error {
	return c.do(ctx, http.MethodPost, tokenPath(id, "metadata/freeze"), nil, nil)
}

func (c *Client) TransferAdmin(ctx context.Context, newAdmin domain.Address) error {
	return c.do(ctx, http.MethodPost, "/admin/transfer", map[string]string{"new_admin": newAdmin.String()}, nil)
}

func (c *Client) SetPaused(ctx context.Context, paused bool) (bool, error) {
	var resp handler.PausedResponse
	err := c.do(ctx, http.MethodPost, "/admin/paused", map[string]bool{"paused": paused}, &resp)
	return resp.Paused, err
}

func (c *Client) Status(ctx context.Context) (handler.StatusResponse, error) {
	var resp handler.StatusResponse
	err := c.do(ctx, http.MethodGet, "/admin", nil, &resp)
	return resp, err
}

// Token returns the record; a 404 is reported as Found=false rather than an error.
func (c *Client) Token(ctx context.Context, id domain.TokenID) (handler.TokenResponse, error) {
	var resp handler.TokenResponse
	err := c.do(ctx, http.MethodGet, tokenPath(id, ""), nil, &resp)
	if isAbsent(err) {
		return handler.TokenResponse{Found: false}, nil
	}
	return resp, err
}

func (c *Client) Owner(ctx context.Context, owner domain.Address) (handler.OwnerResponse, error) {
	var resp handler.OwnerResponse
	err := c.do(ctx, http.MethodGet, "/owners/"+owner.String(), nil, &resp)
	return resp, err
}

func (c *Client) TokenByIndex(ctx context.Context, owner domain.Address, index int) (handler.TokenByIndexResponse, error) {
	var resp handler.TokenByIndexResponse
	err := c.do(ctx, http.MethodGet, "/owners/"+owner.String()+"/tokens/"+strconv.Itoa(index), nil, &resp)
	if isAbsent(err) {
		return handler.TokenByIndexResponse{Found: false}, nil
	}
	return resp, err
}

// isAbsent reports a read that found nothing. Those 404s carry no error category.
func isAbsent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound && apiErr.Category == ""
}

func tokenPath(id domain.TokenID, suffix string) string {
	p := "/tokens/" + url.PathEscape(id.String())
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
