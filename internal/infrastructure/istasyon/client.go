// Package istasyon is a client for the station reservation REST API: it
// exchanges credentials for a bearer token and exposes typed operations
// over the registration endpoints.
package istasyon

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/seat-scheduler/internal/infrastructure/httpx"
	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.istasyon.gungoren.bel.tr/v1/app"

const (
	pathAuthorize    = "/authorize"
	pathRegistration = "/registration"
	pathProfile      = "/profile"

	grantType = "basic"
)

// once sends a request a single time.
var once = httpx.RetryPolicy{MaxAttempts: 1}

// ErrNoData is returned when a mutating call answers 2xx without a data
// payload.
var ErrNoData = errors.New("response carried no data")

// ErrNotLoggedIn is returned by domain calls made before Login.
var ErrNotLoggedIn = errors.New("not logged in")

// Options configures a Client. Retry applies to reads and deletes only;
// POSTs are sent once.
type Options struct {
	BaseURL  string
	Executor *httpx.Executor
	Retry    httpx.RetryPolicy
	Logger   logrus.FieldLogger
}

// Client holds the session for one run. The token lives only in memory.
type Client struct {
	x     *httpx.Executor
	base  string
	retry httpx.RetryPolicy
	log   logrus.FieldLogger

	token string
}

// New returns a Client that is not yet logged in. A nil Executor gets a
// default one and an empty BaseURL means DefaultBaseURL.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	c := &Client{x: opts.Executor, base: base, retry: opts.Retry, log: opts.Logger}
	if c.x == nil {
		c.x = httpx.New(httpx.Options{Logger: opts.Logger})
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	return c
}

type authorizeRequest struct {
	Data struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		GrantType string `json:"grant_type"`
	} `json:"data"`
}

type authorizeResponse struct {
	Data *struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Login exchanges the credential pair for a bearer token and keeps it for
// every later call. Any failure, including a 2xx without a token, is a
// KindAuth error.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var body authorizeRequest
	body.Data.Username = username
	body.Data.Password = password
	body.Data.GrantType = grantType

	var res authorizeResponse
	err := c.x.Do(ctx, once, httpx.Request{
		Method: http.MethodPost,
		URL:    c.base + pathAuthorize,
		JSON:   body,
	}, &res)
	if err != nil {
		c.log.WithError(err).Error("login failed")
		return &httpx.Error{Kind: httpx.KindAuth, Method: http.MethodPost, URL: c.base + pathAuthorize, Reason: "login rejected", Err: err}
	}
	if res.Data == nil || res.Data.Token == "" {
		c.log.Error("login failed, no token in response")
		return &httpx.Error{Kind: httpx.KindAuth, Method: http.MethodPost, URL: c.base + pathAuthorize, Reason: "no token in response"}
	}

	c.token = res.Data.Token
	c.log.Info("logged in")
	return nil
}

// LoggedIn reports whether Login has stored a token.
func (c *Client) LoggedIn() bool { return c.token != "" }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if c.token == "" {
		return ErrNotLoggedIn
	}
	policy := c.retry
	if method == http.MethodPost {
		policy = once
	}
	return c.x.Do(ctx, policy, httpx.Request{
		Method: method,
		URL:    c.base + path,
		Header: http.Header{"Authorization": []string{"Bearer " + c.token}},
		Query:  query,
		JSON:   body,
	}, out)
}
