package telemetry

import (
	"context"

	"golang.org/x/time/rate"
)

// LimitedProvider wraps a Provider with a token-bucket limiter so that a
// very small polling rate cannot hammer the upstream source. Sample
// blocks until a token is available or ctx is canceled.
type LimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// Limit caps samplesPerSec against the wrapped provider. burst <= 0
// defaults to 1.
func Limit(p Provider, samplesPerSec float64, burst int) *LimitedProvider {
	if burst <= 0 {
		burst = 1
	}
	return &LimitedProvider{inner: p, limiter: rate.NewLimiter(rate.Limit(samplesPerSec), burst)}
}

func (p *LimitedProvider) Sample(ctx context.Context, target, packet, item string, r Representation) (Value, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Value{}, err
	}
	return p.inner.Sample(ctx, target, packet, item, r)
}

var _ Provider = (*LimitedProvider)(nil)
