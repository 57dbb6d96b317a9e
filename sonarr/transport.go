// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package sonarr

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type httpClientOptions struct {
	timeout      time.Duration
	transport    http.RoundTripper
	retryOptions *retryOptions
}

// HTTPClientOption configures the http.Client built by [NewHTTPClient].
type HTTPClientOption func(*httpClientOptions)

// Timeout bounds the total time for a single request, including retries
// of the body read. Zero means no timeout.
func Timeout(d time.Duration) HTTPClientOption {
	return func(o *httpClientOptions) {
		o.timeout = d
	}
}

// Transport overrides the underlying http.RoundTripper. Compose it with
// [CircuitBreaker] via [RoundTripperWith].
func Transport(rt http.RoundTripper) HTTPClientOption {
	return func(o *httpClientOptions) {
		o.transport = rt
	}
}

type retryOptions struct {
	logger     *zap.Logger
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
}

// RetryOption configures the retry behaviour applied by [RetryRequests].
type RetryOption func(*retryOptions)

// MaxAttempts caps the number of retries per request.
func MaxAttempts(n int) RetryOption {
	return func(ro *retryOptions) {
		ro.maxRetries = n
	}
}

// MinWaitDuration is the minimum backoff between retries.
func MinWaitDuration(min time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMin = min
	}
}

// MaxWaitDuration is the maximum backoff between retries.
func MaxWaitDuration(max time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMax = max
	}
}

// RetryAttemptLogger logs each attempt and response at info level.
func RetryAttemptLogger(logger *zap.Logger) RetryOption {
	return func(ro *retryOptions) {
		ro.logger = logger
	}
}

// RetryRequests adds request retry logic to the http.Client.
func RetryRequests(opts ...RetryOption) HTTPClientOption {
	return func(o *httpClientOptions) {
		ro := &retryOptions{
			logger:     zap.NewNop(),
			waitMin:    100 * time.Millisecond,
			waitMax:    5 * time.Second,
			maxRetries: 2,
		}
		for _, opt := range opts {
			opt(ro)
		}
		o.retryOptions = ro
	}
}

// NewHTTPClient builds an http.Client suitable for talking to Sonarr
// over an unreliable home network. Retries and circuit breaking are
// opt-in via [RetryRequests] and [CircuitBreaker].
func NewHTTPClient(opts ...HTTPClientOption) *http.Client {
	o := &httpClientOptions{
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}

	c := &http.Client{
		Timeout:   o.timeout,
		Transport: o.transport,
	}
	if o.retryOptions == nil {
		return c
	}

	log := o.retryOptions.logger
	rc := retryablehttp.Client{
		HTTPClient:   c,
		Logger:       nil,
		RetryWaitMin: o.retryOptions.waitMin,
		RetryWaitMax: o.retryOptions.waitMax,
		RetryMax:     o.retryOptions.maxRetries,
		RequestLogHook: func(l retryablehttp.Logger, req *http.Request, i int) {
			log.Info("sending http request", zap.String("url", req.URL.String()), zap.Int("request_attempt_count", i))
		},
		ResponseLogHook: func(l retryablehttp.Logger, resp *http.Response) {
			log.Info("received http response", zap.String("url", resp.Request.URL.String()), zap.Int("http_status_code", resp.StatusCode))
		},
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.StandardClient()
}

type circuitOptions struct {
	name         string
	logger       *zap.Logger
	maxRequests  uint32
	interval     time.Duration
	timeout      time.Duration
	tripCount    uint32
	isSuccessful func(error) bool
	statusCodes  []int
}

// CircuitOption configures the circuit breaker built by [CircuitBreaker].
type CircuitOption func(*circuitOptions)

// CircuitName names the circuit breaker. The name is also used for the
// logger which records state changes.
func CircuitName(name string) CircuitOption {
	return func(co *circuitOptions) {
		co.name = name
	}
}

// CircuitLogger sets the logger used to record circuit state changes.
func CircuitLogger(logger *zap.Logger) CircuitOption {
	return func(co *circuitOptions) {
		co.logger = logger
	}
}

// CircuitMaxRequests is the number of requests allowed through while the
// circuit is half open. Zero allows a single request.
func CircuitMaxRequests(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.maxRequests = n
	}
}

// CircuitInterval is the cyclic period over which the closed circuit
// clears its internal counts. Zero means the counts are never cleared
// while closed.
func CircuitInterval(interval time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.interval = interval
	}
}

// CircuitTimeout is how long the circuit stays open before moving to
// half open. Zero defaults to 60 seconds.
func CircuitTimeout(timeout time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.timeout = timeout
	}
}

// CircuitTripCount is the number of consecutive failures required to
// trip the circuit.
func CircuitTripCount(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.tripCount = n
	}
}

var errStatusCode = errors.New("status code error")

// CircuitErrorOnStatusCode registers a response status code the circuit
// breaker should count as a failure.
//
// Default: 400, 401, 403, 500
func CircuitErrorOnStatusCode(n int) CircuitOption {
	return func(co *circuitOptions) {
		co.statusCodes = append(co.statusCodes, n)
	}
}

// NotConnError reports whether err is not a connection level failure.
func NotConnError(err error) bool {
	switch errors.Unwrap(err).(type) {
	case *net.AddrError, *net.DNSError, *net.OpError:
		return false
	default:
		return true
	}
}

// NotStatusCodeError reports whether err is not a registered status
// code failure.
func NotStatusCodeError(err error) bool {
	return err != errStatusCode
}

func composeCircuitErrorCheckers(fs ...func(error) bool) func(error) bool {
	return func(err error) bool {
		for _, f := range fs {
			if !f(err) {
				return false
			}
		}
		return true
	}
}

// CountCircuitErrorIf overrides which errors count against the circuit.
// f must report success, i.e. return false to count err as a failure.
func CountCircuitErrorIf(f func(error) bool) CircuitOption {
	return func(co *circuitOptions) {
		co.isSuccessful = f
	}
}

// RoundTripperOption wraps a http.RoundTripper with additional behaviour.
type RoundTripperOption func(http.RoundTripper) http.RoundTripper

// RoundTripperWith applies the given options to rt, innermost first.
func RoundTripperWith(rt http.RoundTripper, opts ...RoundTripperOption) http.RoundTripper {
	for _, opt := range opts {
		rt = opt(rt)
	}
	return rt
}

// CircuitBreaker wraps a http.RoundTripper with a circuit breaker so a
// dead Sonarr instance fails fast instead of tying up every request in
// connect timeouts.
func CircuitBreaker(opts ...CircuitOption) RoundTripperOption {
	return func(rt http.RoundTripper) http.RoundTripper {
		co := &circuitOptions{
			logger:      zap.NewNop(),
			tripCount:   5,
			timeout:     60 * time.Second,
			maxRequests: 1,
			isSuccessful: composeCircuitErrorCheckers(
				NotStatusCodeError,
				NotConnError,
			),
		}
		for _, opt := range opts {
			opt(co)
		}

		if len(co.statusCodes) == 0 {
			co.statusCodes = append(
				co.statusCodes,
				http.StatusBadRequest,
				http.StatusUnauthorized,
				http.StatusForbidden,
				http.StatusInternalServerError,
			)
		}
		codes := make(map[int]struct{}, len(co.statusCodes))
		for _, code := range co.statusCodes {
			codes[code] = struct{}{}
		}

		log := co.logger.Named(co.name)

		return &circuitRoundTripper{
			RoundTripper: rt,
			cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        co.name,
				MaxRequests: co.maxRequests,
				Interval:    co.interval,
				Timeout:     co.timeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= co.tripCount
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					switch to {
					case gobreaker.StateOpen:
						log.Error("circuit has been opened")
					case gobreaker.StateHalfOpen:
						log.Warn("circuit is now half open and letting some requests through", zap.Uint32("max_requests_allowed_through", co.maxRequests))
					case gobreaker.StateClosed:
						log.Info("circuit has been closed")
					}
				},
				IsSuccessful: co.isSuccessful,
			}),
			onStatusCode: func(n int) error {
				_, ok := codes[n]
				if !ok {
					return nil
				}
				return errStatusCode
			},
		}
	}
}

type circuitRoundTripper struct {
	http.RoundTripper
	cb           *gobreaker.CircuitBreaker
	onStatusCode func(int) error
}

func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := rt.cb.Execute(func() (any, error) {
		resp, err := rt.RoundTripper.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		err = rt.onStatusCode(resp.StatusCode)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}
