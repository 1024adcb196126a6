package directions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"walk-navigation/internal/geo"
)

var ErrNoRoute = errors.New("no route found")

const ProfileWalking = "walking"

type Request struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Profile     string
}

func (r Request) key() string {
	return fmt.Sprintf("%s|%s|%s", r.Profile, r.Origin, r.Destination)
}

// Route is the first route returned by a directions backend.
type Route struct {
	Path            []geo.Coordinate
	DistanceMeters  float64
	DurationSeconds float64
}

type ClientOptions struct {
	Timeout time.Duration
	// RequestsPerSecond caps outgoing requests across every session sharing
	// the client. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:           7 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// base holds what both backends share: the HTTP client, the request budget
// and coalescing of identical in-flight requests.
type base struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	flight     singleflight.Group
}

func newBase(options []ClientOptions) base {
	opts := DefaultClientOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return base{
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// do runs fetch once per identical request. The shared call is detached from
// the caller's cancellation; each caller still returns as soon as its own ctx
// is done.
func (b *base) do(ctx context.Context, req Request, fetch func(context.Context, Request) (*Route, error)) (*Route, error) {
	ch := b.flight.DoChan(req.key(), func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		if err := b.limiter.Wait(shared); err != nil {
			return nil, fmt.Errorf("waiting for request budget: %w", err)
		}
		return fetch(shared, req)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Route), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
