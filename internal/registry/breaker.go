package registry

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// Getter fetches and decodes a JSON document.
type Getter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// BreakerClient wraps a Getter with one circuit breaker per registry host.
type BreakerClient struct {
	getter    Getter
	threshold int64
	breakers  map[string]*circuit.Breaker
	mu        sync.RWMutex
}

// NewBreakerClient creates a circuit breaker wrapper that trips after
// threshold consecutive failures. A threshold below 1 defaults to 5.
func NewBreakerClient(g Getter, threshold int) *BreakerClient {
	if threshold < 1 {
		threshold = 5
	}
	return &BreakerClient{
		getter:    g,
		threshold: int64(threshold),
		breakers:  make(map[string]*circuit.Breaker),
	}
}

func (bc *BreakerClient) getBreaker(host string) *circuit.Breaker {
	bc.mu.RLock()
	breaker, exists := bc.breakers[host]
	bc.mu.RUnlock()

	if exists {
		return breaker
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	if breaker, exists := bc.breakers[host]; exists {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(bc.threshold),
	})

	bc.breakers[host] = breaker
	return breaker
}

// GetJSON wraps the underlying GetJSON with circuit breaker logic. Not found
// responses do not count as failures.
func (bc *BreakerClient) GetJSON(ctx context.Context, rawURL string, v any) error {
	host := extractHost(rawURL)
	breaker := bc.getBreaker(host)

	if !breaker.Ready() {
		return fmt.Errorf("circuit breaker open for registry %s: %w", host, ErrUpstreamDown)
	}

	var notFound error
	err := breaker.Call(func() error {
		err := bc.getter.GetJSON(ctx, rawURL, v)
		if err != nil && isNotFound(err) {
			notFound = err
			return nil
		}
		return err
	}, 0)
	if err != nil {
		return err
	}
	return notFound
}

// State returns "open" or "closed" per registry host.
func (bc *BreakerClient) State() map[string]string {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	states := make(map[string]string, len(bc.breakers))
	for host, breaker := range bc.breakers {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// BreakerStates returns the breaker state per registry host of an HTTP
// fetcher built with a circuit breaker, or nil for any other fetcher.
func BreakerStates(f Fetcher) map[string]string {
	hf, ok := f.(*HTTPFetcher)
	if !ok {
		return nil
	}
	bc, ok := hf.getter.(*BreakerClient)
	if !ok {
		return nil
	}
	return bc.State()
}

func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
