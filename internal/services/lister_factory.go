package services

import (
	"context"
	"fmt"

	"github.com/damacus/iron-blobs/internal/listing"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ListerFactory creates listers for a connection
type ListerFactory interface {
	NewLister(conn Connection) (listing.Lister, error)
}

// RealListerFactory is the production implementation.
// Every lister it returns is throttled to RateLimit calls per second.
type RealListerFactory struct {
	RateLimit float64
	Burst     int
	Logger    *zap.Logger
}

func (f *RealListerFactory) NewLister(conn Connection) (listing.Lister, error) {
	var (
		lister listing.Lister
		err    error
	)
	switch conn.Provider {
	case ProviderAzure:
		lister, err = NewAzureLister(conn, f.Logger)
	case ProviderS3:
		lister, err = NewS3Lister(conn, f.Logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConnection, conn.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewRateLimitedLister(lister, rate.Limit(f.RateLimit), f.Burst), nil
}

// RateLimitedLister waits for a token before every listing call
type RateLimitedLister struct {
	next    listing.Lister
	limiter *rate.Limiter
}

// NewRateLimitedLister returns next unchanged when limit is not positive
func NewRateLimitedLister(next listing.Lister, limit rate.Limit, burst int) listing.Lister {
	if limit <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedLister{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (l *RateLimitedLister) ListHierarchy(ctx context.Context, req listing.ListRequest) (*listing.ListResponse, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for listing slot: %w", err)
	}
	return l.next.ListHierarchy(ctx, req)
}
