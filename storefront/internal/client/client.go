// Package client talks to the marketplace REST APIs the storefront depends
// on: orders, payments and the catalog. Every API sits behind its own
// circuit breaker and traced transport.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnavailable is returned without calling the API while its breaker is open.
var ErrUnavailable = errors.New("upstream unavailable")

// APIError is a non-2xx answer from an API. Message is the server's
// human-readable text when it sent one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Temporary reports whether the failure is on the server side.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// Transport is wrapped with otelhttp. Nil means http.DefaultTransport.
	Transport http.RoundTripper
	Logger    logrus.FieldLogger
}

type base struct {
	http *resty.Client
	cb   *gobreaker.CircuitBreaker[*resty.Response]
}

func newBase(name string, opts Options) base {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetTransport(otelhttp.NewTransport(transport)).
		SetHeader("Accept", "application/json")

	cb := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a rejected request is the API working as intended
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return base{http: httpClient, cb: cb}
}

// do runs one request through the breaker. result is decoded on 2xx.
func (b base) do(ctx context.Context, method, path string, result any, configure func(*resty.Request)) error {
	_, err := b.cb.Execute(func() (*resty.Response, error) {
		req := b.http.R().
			SetContext(ctx).
			SetResult(result).
			SetError(&errorBody{})
		if configure != nil {
			configure(req)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		if resp.IsError() {
			return resp, decodeAPIError(resp)
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func decodeAPIError(resp *resty.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}
