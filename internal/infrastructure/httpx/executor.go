// Package httpx issues JSON requests against third-party REST APIs with a
// per-request timeout, classifies every failure into a Kind, and re-issues
// requests that failed for transient transport reasons.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/example/seat-scheduler/internal/clock"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

const (
	defaultUA    = "seatsched/1.0"
	maxErrorBody = 512
)

// Request describes one HTTP call. JSON, when non-nil, is encoded as the
// body; otherwise Body is sent as-is with ContentType.
type Request struct {
	Method string
	URL    string
	// Name replaces the URL in logs and errors. Set it when the URL
	// carries a credential.
	Name        string
	Header      http.Header
	Query       url.Values
	JSON        any
	Body        []byte
	ContentType string
}

func (r Request) label() string {
	if r.Name != "" {
		return r.Name
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	u.RawQuery = ""
	return u.String()
}

// Options configures an Executor. Zero fields take defaults.
type Options struct {
	HTTPClient *http.Client
	Clock      clock.Clock
	Logger     logrus.FieldLogger
	Timeout    time.Duration
}

// Executor runs Requests. It is safe for sequential reuse across a run.
type Executor struct {
	hc      *http.Client
	clock   clock.Clock
	log     logrus.FieldLogger
	timeout time.Duration
}

// New returns an Executor with a plain http.Client, the real clock, the
// standard logger and DefaultTimeout where opts leaves them unset.
func New(opts Options) *Executor {
	x := &Executor{
		hc:      opts.HTTPClient,
		clock:   opts.Clock,
		log:     opts.Logger,
		timeout: opts.Timeout,
	}
	if x.hc == nil {
		x.hc = &http.Client{}
	}
	if x.clock == nil {
		x.clock = clock.Real()
	}
	if x.log == nil {
		x.log = logrus.StandardLogger()
	}
	if x.timeout <= 0 {
		x.timeout = DefaultTimeout
	}
	return x
}

// Execute issues req once and decodes a 2xx JSON body into out (which may
// be nil). An empty 2xx body is treated as JSON null.
func (x *Executor) Execute(ctx context.Context, req Request, out any) error {
	label := req.label()
	fail := func(kind Kind, err error) *Error {
		return &Error{Kind: kind, Method: req.Method, URL: label, Err: err}
	}

	body := req.Body
	contentType := req.ContentType
	if req.JSON != nil {
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return fail(KindRequest, err)
		}
		body = b
		contentType = "application/json"
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(body))
	if err != nil {
		return fail(KindRequest, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("accept", "application/json")
	if hreq.Header.Get("user-agent") == "" {
		hreq.Header.Set("user-agent", defaultUA)
	}
	if contentType != "" {
		hreq.Header.Set("content-type", contentType)
	}
	if len(req.Query) > 0 {
		q := hreq.URL.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		hreq.URL.RawQuery = q.Encode()
	}

	x.log.WithFields(logrus.Fields{"method": req.Method, "url": label}).Debug("request")

	res, err := x.hc.Do(hreq)
	if err != nil {
		var uerr *url.Error
		if req.Name != "" && errors.As(err, &uerr) {
			uerr.URL = label
		}
		return fail(classifyTransport(err), err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		kind := KindRequest
		if isTimeout(err) {
			kind = KindTimeout
		}
		return fail(kind, err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &Error{
			Kind:       KindHTTP,
			Method:     req.Method,
			URL:        label,
			StatusCode: res.StatusCode,
			Reason:     http.StatusText(res.StatusCode),
			Body:       truncate(b, maxErrorBody),
		}
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if out == nil {
		if !json.Valid(b) {
			return &Error{Kind: KindDecode, Method: req.Method, URL: label, Reason: "response is not JSON", Body: truncate(b, maxErrorBody)}
		}
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &Error{Kind: KindDecode, Method: req.Method, URL: label, Body: truncate(b, maxErrorBody), Err: err}
	}
	return nil
}

// classifyTransport maps an http.Client.Do failure to a Kind. Everything
// that is not a deadline is treated as a connection-level fault.
func classifyTransport(err error) Kind {
	if isTimeout(err) {
		return KindTimeout
	}
	return KindNetwork
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
