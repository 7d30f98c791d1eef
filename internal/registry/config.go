package registry

import (
	"launcher/internal/config"
)

// NewFetcher creates the fetcher described by cfg. A configured catalog file
// wins over the registry; otherwise the registry at registryID is queried over
// HTTP, behind a circuit breaker unless BreakerThreshold is zero.
func NewFetcher(cfg config.RegistryConfig, registryID string) Fetcher {
	if cfg.CatalogFile != "" {
		getLogger("fetcher").Debug("using catalog file", "path", cfg.CatalogFile)
		return NewFileFetcher(cfg.CatalogFile)
	}

	var getter Getter = NewClient(
		WithTimeout(cfg.Timeout),
		WithMaxRetries(cfg.MaxRetries),
		WithBaseDelay(cfg.BaseDelay),
		WithUserAgent(cfg.UserAgent),
		WithBearerToken(cfg.Token),
	)
	if cfg.BreakerThreshold > 0 {
		getter = NewBreakerClient(getter, int(cfg.BreakerThreshold))
	}

	baseURL := BaseURLFor(cfg.URL, registryID)
	getLogger("fetcher").Debug("using registry", "url", baseURL, "breaker_threshold", cfg.BreakerThreshold)
	return NewHTTPFetcher(baseURL, getter)
}
