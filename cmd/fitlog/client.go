package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/fitlog/internal/config"
)

const sessionCookieName = "session"

var errNotLoggedIn = errors.New("not logged in (run: fitlog login <username>)")

// client talks to fitlogd on behalf of one CLI invocation.
type client struct {
	baseURL     string
	sessionFile string
	http        *http.Client
}

func newClient(opts *options) (*client, error) {
	path := opts.sessionFile
	if path == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "session")
	}
	return &client{
		baseURL:     strings.TrimRight(opts.serverURL, "/"),
		sessionFile: path,
		http: &http.Client{
			Timeout: 30 * time.Second,
			// Logout answers with a redirect meant for browsers.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// apiError is a non-2xx reply from the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// do sends body as JSON and decodes a 2xx reply into out. It returns the
// response so callers can read cookies.
func (c *client) do(method, path string, body, out interface{}, authenticated bool) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		id, err := c.loadSession()
		if err != nil {
			return nil, err
		}
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if resp.StatusCode == http.StatusUnauthorized && authenticated {
			return resp, fmt.Errorf("%w: %s", errNotLoggedIn, e.Error)
		}
		return resp, &apiError{Status: resp.StatusCode, Message: e.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp, nil
}

func (c *client) loadSession() (string, error) {
	b, err := os.ReadFile(c.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", errNotLoggedIn
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	id := strings.TrimSpace(string(b))
	if id == "" {
		return "", errNotLoggedIn
	}
	return id, nil
}

// saveSession stores the session cookie from resp.
func (c *client) saveSession(resp *http.Response) error {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName && cookie.Value != "" {
			if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0700); err != nil {
				return fmt.Errorf("failed to create session dir: %w", err)
			}
			return os.WriteFile(c.sessionFile, []byte(cookie.Value+"\n"), 0600)
		}
	}
	return errors.New("server did not return a session cookie")
}

func (c *client) clearSession() error {
	err := os.Remove(c.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
