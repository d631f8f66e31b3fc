// Package client is a Go client for the rehearsal API together with a small
// state store that mirrors what a frontend keeps: session, bands, upcoming
// rehearsals, setlists and notifications.
package client

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

	"github.com/joeshaw/envdecode"
	"github.com/rehearsal-scheduler/app/internal/models"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "http://localhost:4000/api"

// APIError is a non-2xx answer. Message is the server's "message" field,
// empty when the body had none.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// errorMessage returns the server message carried by err, or fallback.
func errorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type clientEnv struct {
	APIURL string `env:"REACT_APP_API_URL,default=http://localhost:4000/api"`
}

// BaseURLFromEnv returns REACT_APP_API_URL, or DefaultBaseURL when unset.
func BaseURLFromEnv() string {
	var cfg clientEnv
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return DefaultBaseURL
	}
	if cfg.APIURL == "" {
		return DefaultBaseURL
	}
	return cfg.APIURL
}

// Client calls the REST API. Tokens are passed per call; the Store decides
// which one to use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL, e.g. "http://localhost:4000/api". A nil
// httpClient gets a default with a timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	out := &models.AuthResponse{}
	err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": password,
	}, out)
	return out, err
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	out := &models.AuthResponse{}
	err := c.do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	}, out)
	return out, err
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

func (c *Client) Me(ctx context.Context, token string) (*models.User, error) {
	out := &models.User{}
	err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, out)
	return out, err
}

func (c *Client) Bands(ctx context.Context, token string) ([]*models.Band, error) {
	var out []*models.Band
	err := c.do(ctx, http.MethodGet, "/bands", token, nil, &out)
	return out, err
}

// UpcomingRehearsals lists rehearsals from now on. limit <= 0 uses the server default.
func (c *Client) UpcomingRehearsals(ctx context.Context, token string, limit int) ([]*models.Rehearsal, error) {
	path := "/rehearsals/upcoming"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []*models.Rehearsal
	err := c.do(ctx, http.MethodGet, path, token, nil, &out)
	return out, err
}

// SetAttendance records the caller's response and returns the updated rehearsal.
func (c *Client) SetAttendance(ctx context.Context, token string, rehearsalID int64, status, note string) (*models.Rehearsal, error) {
	out := &models.Rehearsal{}
	path := "/rehearsals/" + strconv.FormatInt(rehearsalID, 10) + "/attendance"
	err := c.do(ctx, http.MethodPut, path, token, map[string]string{"status": status, "note": note}, out)
	return out, err
}

// Setlists lists setlists, for one band when bandID is non-zero.
func (c *Client) Setlists(ctx context.Context, token string, bandID int64) ([]*models.Setlist, error) {
	path := "/setlists"
	if bandID != 0 {
		path += "?" + url.Values{"bandId": {strconv.FormatInt(bandID, 10)}}.Encode()
	}
	var out []*models.Setlist
	err := c.do(ctx, http.MethodGet, path, token, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: gjson.GetBytes(raw, "message").String()}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
