package apiexternal

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// StatusError is returned for non 2xx responses. Message is the "message"
// field of a JSON error body when there is one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return strconv.Itoa(e.StatusCode) + ": " + e.Message
	}
	return strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}

// StatusCode returns the status of a *StatusError anywhere in err's chain, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

//RLHTTPClient Rate Limited HTTP Client
type RLHTTPClient struct {
	client      *http.Client
	Ratelimiter *rate.Limiter
}

//NewClient return http client with a ratelimiter. A nil limiter does not limit.
func NewClient(rl *rate.Limiter, timeout time.Duration, jar http.CookieJar) *RLHTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &RLHTTPClient{
		client: &http.Client{Timeout: timeout, Jar: jar,
			Transport: &http.Transport{MaxIdleConns: 20, MaxConnsPerHost: 10, DisableCompression: false, IdleConnTimeout: 20 * time.Second}},
		Ratelimiter: rl,
	}
	return c
}

// Limiter builds the limiter for calls requests per seconds. Zero values
// disable limiting.
func Limiter(calls int, seconds int) *rate.Limiter {
	if calls <= 0 || seconds <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Duration(seconds)*time.Second/time.Duration(calls)), calls)
}

//Do dispatches the HTTP request to the network after waiting for the limiter.
func (c *RLHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.Ratelimiter != nil {
		if err := c.Ratelimiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return c.client.Do(req)
}

// DoJson sends req and decodes a 2xx body into jsonobj. Other statuses return
// a *StatusError.
func (c *RLHTTPClient) DoJson(req *http.Request, jsonobj interface{}) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode}
		var body struct {
			Message string `json:"message"`
		}
		if raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)); err == nil && json.Unmarshal(raw, &body) == nil {
			se.Message = body.Message
		}
		return se
	}
	if jsonobj == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(jsonobj); err != nil {
		return errors.Wrap(err, fmt.Sprintf("decode %s %s", req.Method, req.URL.Path))
	}
	return nil
}
