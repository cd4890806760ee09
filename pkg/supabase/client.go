package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/supamocka/pkg/util"
)

// Paths relative to the project URL.
const (
	AdminUsersPath = "/auth/v1/admin/users"
	RESTPrefix     = "/rest/v1"
)

// Header names.
const (
	APIKeyHeader        = "apikey"
	AuthorizationHeader = "Authorization"
)

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 30 * time.Second

// User is one account in the target project.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Role         string     `json:"role,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
}

// CreateUserParams is the body of an admin create-user call.
type CreateUserParams struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm,omitempty"`
}

// AdminClient issues privileged user-management calls.
type AdminClient interface {
	// CreateUser creates an account and returns it.
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
	// ListUsers returns the first page of accounts.
	ListUsers(ctx context.Context) ([]User, error)
	// BaseURL returns the project URL the client was built for.
	BaseURL() string
}

// APIError is returned for every failed call.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorCodeConnection marks requests that never got a response.
const ErrorCodeConnection = "connection_error"

// IsConnectionError reports whether err means no HTTP response was received.
func IsConnectionError(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.ErrorCode == ErrorCodeConnection
}

// ClientOption configures a client.
type ClientOption func(*transport)

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(t *transport) {
		t.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(t *transport) {
		t.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(t *transport) {
		t.userAgent = ua
	}
}

// transport is shared by the admin and REST clients.
type transport struct {
	baseURL    string
	key        string
	bearer     bool
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
}

func newTransport(baseURL, key string, bearer bool, opts []ClientOption) *transport {
	t := &transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		bearer:  bearer,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{Timeout: t.timeout}
	}
	return t
}

// do performs a request and returns the response. Transport failures become
// a connection APIError.
func (t *transport) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bodyReader)
	if err != nil {
		return nil, &APIError{
			ErrorCode: ErrorCodeConnection,
			Message:   fmt.Sprintf("invalid request to %q: %v", t.baseURL+path, err),
		}
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if t.key != "" {
		req.Header.Set(APIKeyHeader, t.key)
		if t.bearer {
			req.Header.Set(AuthorizationHeader, "Bearer "+t.key)
		}
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{
			ErrorCode: ErrorCodeConnection,
			Message:   fmt.Sprintf("cannot connect to %s: %v", t.baseURL, err),
		}
	}
	return resp, nil
}

// adminClient implements AdminClient over HTTP.
type adminClient struct {
	t *transport
}

// NewAdminClient configures a privileged client for url authorised with
// secretKey. It performs no I/O.
func NewAdminClient(url, secretKey string, opts ...ClientOption) AdminClient {
	return &adminClient{t: newTransport(url, secretKey, true, opts)}
}

func (c *adminClient) BaseURL() string { return c.t.baseURL }

// CreateUser creates an account.
func (c *adminClient) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	resp, err := c.t.do(ctx, http.MethodPost, AdminUsersPath, params)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &user, nil
}

// ListUsers returns the first page of accounts.
func (c *adminClient) ListUsers(ctx context.Context) ([]User, error) {
	resp, err := c.t.do(ctx, http.MethodGet, AdminUsersPath, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var result struct {
		Users []User `json:"users"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Users == nil {
		result.Users = []User{}
	}
	return result.Users, nil
}

// errorBody covers the error shapes the auth server has used over time.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b errorBody) message() string {
	for _, s := range []string{b.Msg, b.Message, b.ErrorDescription, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (b errorBody) code() string {
	if b.ErrorCode != "" {
		return b.ErrorCode
	}
	if b.Error != "" && b.ErrorDescription != "" {
		return b.Error
	}
	return ""
}

// readBody returns the body of a successful response, or an APIError for a
// non-2xx status or a 2xx body that carries an error.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var eb errorBody
	decoded := json.Unmarshal(body, &eb) == nil

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decoded && eb.message() != "" {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				ErrorCode:  eb.code(),
				Message:    eb.message(),
			}
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  "unknown_error",
			Message:    fmt.Sprintf("server returned status %d: %s", resp.StatusCode, util.TruncateBody(strings.TrimSpace(string(body)), 0)),
		}
	}

	if decoded && (eb.Error != "" || eb.Msg != "") {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  eb.code(),
			Message:    eb.message(),
		}
	}
	return body, nil
}
