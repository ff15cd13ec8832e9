package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
)

// HTTPClientConfig bundles the HTTP client and circuit breaker settings
// shared by every provider.
type HTTPClientConfig struct {
	Client  *http.Client
	BaseURL string

	// BreakerThreshold is the number of consecutive failures that opens
	// the circuit. Zero keeps the circuit permanently closed.
	BreakerThreshold uint32
}

var errNoHTTPClient = errors.New("http client not configured")

func newCircuitBreaker(name string, threshold uint32) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     1 * time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return threshold > 0 && c.ConsecutiveFailures >= threshold
		},
	})
}

// statusOK accepts 200 only. Traffic lookups use it so that an empty 204
// is reported like any other non-success status.
func statusOK(code int) bool {
	return code == http.StatusOK
}

func status2xx(code int) bool {
	return code >= 200 && code < 300
}

// doRequest executes a single request through the circuit breaker. There is
// no retry: a status rejected by success is reported as
// ingest.ErrUpstreamStatus and an open circuit as ingest.ErrUnavailable.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	success func(code int) bool,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	req, err := buildRequest()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if !success(resp.StatusCode) {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", ingest.ErrUpstreamStatus, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ingest.ErrUnavailable, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}
