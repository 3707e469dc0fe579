package embedder

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v2"
	"github.com/rs/zerolog/log"
)

const (
	maxAttempts       = 3
	initialBackoff    = 200 * time.Millisecond
	perAttemptTimeout = 30 * time.Second
)

// Gateway routes embedding requests to the primary embedder with bounded
// retries, degrading to the local fallback when the primary is exhausted or
// was never configured. The identity actually used travels with the vectors
// so artifacts can be validated at load time.
type Gateway struct {
	primary  Embedder
	fallback Embedder
}

// NewGateway wires the gateway. primary may be nil (no credential), in which
// case every request goes straight to fallback.
func NewGateway(primary, fallback Embedder) *Gateway {
	return &Gateway{primary: primary, fallback: fallback}
}

// Embed returns one vector per text plus the identity of the embedder that
// produced them.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, string, error) {
	if g.primary != nil {
		vecs, err := g.embedWithRetry(ctx, texts)
		if err == nil {
			return vecs, g.primary.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		log.Warn().Err(err).Int("texts", len(texts)).Msg("primary_embedder_exhausted_falling_back")
	}
	if g.fallback == nil {
		return nil, "", ErrUnavailable
	}
	vecs, err := g.fallback.Embed(ctx, texts)
	if err != nil {
		return nil, "", errors.Join(ErrUnavailable, err)
	}
	return vecs, g.fallback.Name(), nil
}

// ByName resolves the embedder recorded in an artifact. Returns nil when
// that identity cannot serve right now (e.g. artifact says primary but no
// credential is configured).
func (g *Gateway) ByName(name string) Embedder {
	if g.primary != nil && g.primary.Name() == name {
		return g.primary
	}
	if g.fallback != nil && g.fallback.Name() == name {
		return g.fallback
	}
	return nil
}

// Primary returns the primary embedder, or nil when none is configured.
func (g *Gateway) Primary() Embedder { return g.primary }

// Fallback returns the local embedder.
func (g *Gateway) Fallback() Embedder { return g.fallback }

func (g *Gateway) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, perAttemptTimeout)
		defer cancel()
		v, err := g.primary.Embed(attemptCtx, texts)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		vecs = v
		return nil
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx))
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

// retryable classifies transient failures: transport errors, timeouts,
// HTTP 429, and HTTP 5xx.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
