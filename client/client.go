// Package client talks to the rampart api the way the dashboard does: one
// generic request function that attaches the session token and drops it when
// the server answers 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/cloudfinch-harshad/rampart/apiexternal"
	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

var ErrUnauthorized = errors.New("unauthorized")

// unauthenticated paths never carry the token and a 401 on them is a plain
// error, not an expired session.
var unauthenticated = map[string]bool{
	"login":            true,
	"register-company": true,
}

type Client struct {
	BaseURL string
	HTTP    *apiexternal.RLHTTPClient
	Tokens  TokenStore
}

// New builds a client with a cookie jar and the configured rate limit.
// A nil token store keeps the token in memory.
func New(cfg config.ClientConfig, tokens TokenStore) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "cookie jar")
	}
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		HTTP:    apiexternal.NewClient(apiexternal.Limiter(cfg.ClientLimiterCalls, cfg.ClientLimiterSeconds), cfg.Timeout, jar),
		Tokens:  tokens,
	}, nil
}

// Envelope is the part every api response shares.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Role        string `json:"role"`
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
}

type AuthResponse struct {
	Envelope
	JwtToken string `json:"jwtToken"`
	Data     User   `json:"data"`
}

type UserResponse struct {
	Envelope
	Data User `json:"data"`
}

type RegisterRequest struct {
	CompanyName     string `json:"companyName"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type FilterVendorsRequest struct {
	Fy            string   `json:"fy"`
	SearchKey     string   `json:"searchKey"`
	PageStart     int      `json:"pageStart"`
	PageSize      int      `json:"pageSize"`
	Statuses      []string `json:"statuses,omitempty"`
	SortField     string   `json:"sortField,omitempty"`
	SortDirection string   `json:"sortDirection,omitempty"`
}

type FilterVendorsResponse struct {
	Envelope
	Vendors []database.VendorJson `json:"filterBrsrVendorResponseList"`
	Total   int                   `json:"total"`
}

// Request sends body as JSON to path below the base url and decodes the
// response into T. The stored token is sent as bearer token except on login
// and registration. A 401 clears the token and returns ErrUnauthorized.
func Request[T any](ctx context.Context, c *Client, method string, path string, body interface{}) (T, error) {
	var out T
	path = strings.TrimLeft(path, "/")

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return out, errors.Wrap(err, "encode request")
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return out, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if !unauthenticated[path] {
		token, err := c.Tokens.Token()
		if err != nil {
			return out, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	err = c.HTTP.DoJson(req, &out)
	if err == nil {
		return out, nil
	}
	if apiexternal.StatusCode(err) == http.StatusUnauthorized && !unauthenticated[path] {
		if cerr := c.Tokens.ClearToken(); cerr != nil {
			logger.Log.Warnln("clear token: ", cerr)
		}
		return out, errors.Wrap(ErrUnauthorized, err.Error())
	}
	return out, errors.Wrap(err, path)
}

// Login stores the session token of a successful login.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	resp, err := Request[AuthResponse](ctx, c, http.MethodPost, "login", map[string]string{"email": email, "password": password})
	if err != nil {
		return resp, err
	}
	return resp, c.storeToken(resp)
}

// Register creates the company and stores the token of its first user.
func (c *Client) Register(ctx context.Context, input RegisterRequest) (AuthResponse, error) {
	resp, err := Request[AuthResponse](ctx, c, http.MethodPost, "register-company", input)
	if err != nil {
		return resp, err
	}
	return resp, c.storeToken(resp)
}

func (c *Client) storeToken(resp AuthResponse) error {
	if !resp.Success || resp.JwtToken == "" {
		return errors.New(resp.Message)
	}
	return c.Tokens.SetToken(resp.JwtToken)
}

func (c *Client) GetUser(ctx context.Context) (User, error) {
	resp, err := Request[UserResponse](ctx, c, http.MethodGet, "get-user", nil)
	return resp.Data, err
}

func (c *Client) FilterVendors(ctx context.Context, input FilterVendorsRequest) (FilterVendorsResponse, error) {
	return Request[FilterVendorsResponse](ctx, c, http.MethodPost, "filter-brsr-vendors", input)
}

// Logout ends the server session. The local token is dropped even when the
// server call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := Request[Envelope](ctx, c, http.MethodPost, "logout", nil)
	if cerr := c.Tokens.ClearToken(); cerr != nil && err == nil {
		err = cerr
	}
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}
	return err
}
