// Package api is the typed HTTP client for the sync server. It speaks
// the server's JSON contract and surfaces auth expiry as a sentinel
// error so the caller can force a logout.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/smarttodo/sync/internal/dto"
	"github.com/smarttodo/sync/internal/models"
)

// ErrUnauthorized is returned when the server rejects the access token.
// The orchestrator treats it as a forced logout.
var ErrUnauthorized = errors.New("unauthorized")

// Client talks to one sync server on behalf of one device. It is safe
// for concurrent use: the orchestrator's cron and debounce goroutines
// may issue requests while a 401 on another path swaps the token out.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token string
}

// New builds a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken sets the bearer token used on protected endpoints.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		var errBody dto.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, errBody.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Register creates an account and returns the initial token pair.
func (c *Client) Register(email, password, name string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := c.do(http.MethodPost, "/api/auth/register", dto.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     name,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(email, password string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := c.do(http.MethodPost, "/api/auth/login", dto.LoginRequest{
		Email:    email,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates the refresh token and returns a fresh token pair.
func (c *Client) Refresh(refreshToken string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := c.do(http.MethodPost, "/api/auth/refresh", dto.RefreshRequest{
		RefreshToken: refreshToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh token server-side.
func (c *Client) Logout(refreshToken string) error {
	return c.do(http.MethodPost, "/api/auth/logout", dto.LogoutRequest{
		RefreshToken: refreshToken,
	}, nil)
}

// Verify checks the access token and returns the account it belongs to.
func (c *Client) Verify() (*dto.VerifyResponse, error) {
	var out dto.VerifyResponse
	if err := c.do(http.MethodGet, "/api/auth/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchTasks returns the server's full live task list.
func (c *Client) FetchTasks() ([]models.Task, error) {
	var out dto.TasksResponse
	if err := c.do(http.MethodGet, "/api/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// SyncTasks pushes the device's task set and returns the merged result.
func (c *Client) SyncTasks(tasks []models.Task, deviceID string) (*dto.SyncTasksResponse, error) {
	var out dto.SyncTasksResponse
	err := c.do(http.MethodPost, "/api/tasks/sync", dto.SyncTasksRequest{
		Tasks:    tasks,
		DeviceID: deviceID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask tombstones a task server-side.
func (c *Client) DeleteTask(id string) error {
	return c.do(http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// FullSync pushes tasks plus assistant state and returns the merged view.
func (c *Client) FullSync(req dto.FullSyncRequest) (*dto.FullSyncResponse, error) {
	var out dto.FullSyncResponse
	if err := c.do(http.MethodPost, "/api/sync/full", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
