package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrAccount is returned when the store rejects an account
// request. The wrapped message is the alert the page would show.
var ErrAccount = errors.New("account request rejected")

// ClientOption configures a Client via functional options.
type ClientOption func(*Client)

// Client calls the store's account API, so tables that only log
// in can run against accounts created ahead of time. Defaults
// match the fixture server; the paths and field names can be
// overridden for stores with the same flow.
type Client struct {
	baseURL    string
	signupPath string
	loginPath  string
	userField  string
	passField  string
	httpClient *http.Client
}

// NewClient creates an account client for the store at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		signupPath: "/api/signup",
		loginPath:  "/api/login",
		userField:  "username",
		passField:  "password",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithSignupPath overrides the sign-up endpoint path.
func WithSignupPath(path string) ClientOption {
	return func(c *Client) { c.signupPath = path }
}

// WithLoginPath overrides the log-in endpoint path.
func WithLoginPath(path string) ClientOption {
	return func(c *Client) { c.loginPath = path }
}

// WithUsernameField overrides the JSON field name for the
// username in request bodies.
func WithUsernameField(field string) ClientOption {
	return func(c *Client) { c.userField = field }
}

// WithPasswordField overrides the JSON field name for the
// password in request bodies.
func WithPasswordField(field string) ClientOption {
	return func(c *Client) { c.passField = field }
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Signup creates an account. A rejected sign-up, such as an
// existing username, wraps ErrAccount.
func (c *Client) Signup(
	ctx context.Context, username, password string,
) error {
	return c.account(ctx, c.signupPath, username, password)
}

// Login checks the credentials of an existing account.
func (c *Client) Login(
	ctx context.Context, username, password string,
) error {
	return c.account(ctx, c.loginPath, username, password)
}

// EnsureUser signs username up, or confirms the existing account
// accepts password. It reports whether a new account was made.
func (c *Client) EnsureUser(
	ctx context.Context, username, password string,
) (bool, error) {
	err := c.Signup(ctx, username, password)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, ErrAccount) {
		return false, err
	}
	if loginErr := c.Login(ctx, username, password); loginErr != nil {
		return false, fmt.Errorf("%w (sign-up: %v)", loginErr, err)
	}
	return false, nil
}

// Health checks that the store answers.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+"/health", nil,
	)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) account(
	ctx context.Context, path, username, password string,
) error {
	body, err := json.Marshal(map[string]string{
		c.userField: username,
		c.passField: password,
	})
	if err != nil {
		return fmt.Errorf("encode account request: %w", err)
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.baseURL+path,
		strings.NewReader(string(body)),
	)
	if err != nil {
		return fmt.Errorf("create account request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("account request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read account response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf(
			"%s returned HTTP %d: %s",
			path, resp.StatusCode, strings.TrimSpace(string(data)),
		)
	}

	var result accountResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("parse account response: %w", err)
	}
	if result.Error != "" {
		return fmt.Errorf("%w: %s", ErrAccount, result.Error)
	}
	return nil
}
