// Package eventconfig resolves event-type definitions and certificate
// templates from the country configuration collaborator. The set of
// registrable event types is configured per deployment, never hardcoded.
package eventconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	dErrors "civreg/pkg/domain-errors"
)

// EventType is one configured registration form, e.g. a birth declaration.
type EventType struct {
	ID                   string   `json:"id"`
	Label                string   `json:"label"`
	CertificateTemplates []string `json:"certificateTemplates"`
}

// Config is the slice of country configuration this service consumes.
type Config struct {
	EventTypes []EventType `json:"eventTypes"`
}

// Provider fetches the current configuration.
type Provider interface {
	Fetch(ctx context.Context) (*Config, error)
}

// Client fetches configuration over HTTP from the country-config service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Fetch(ctx context.Context) (*Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/config", nil)
	if err != nil {
		return nil, fmt.Errorf("build config request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch config: unexpected status %d", resp.StatusCode)
	}

	var cfg Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Static returns a provider serving a fixed configuration, for tests and
// local development.
func Static(types ...EventType) Provider {
	return staticProvider{cfg: &Config{EventTypes: types}}
}

type staticProvider struct{ cfg *Config }

func (p staticProvider) Fetch(context.Context) (*Config, error) { return p.cfg, nil }

// Service caches the configuration with a TTL. Constructed and injected
// explicitly; there is no process-wide config singleton.
type Service struct {
	provider Provider
	ttl      time.Duration

	mu        sync.RWMutex
	cached    *Config
	fetchedAt time.Time
}

func NewService(provider Provider, ttl time.Duration) *Service {
	return &Service{provider: provider, ttl: ttl}
}

// Get returns the cached configuration, refreshing it when stale. A failed
// refresh falls back to the stale copy so a country-config outage does not
// take registration down with it.
func (s *Service) Get(ctx context.Context) (*Config, error) {
	s.mu.RLock()
	cached, fetchedAt := s.cached, s.fetchedAt
	s.mu.RUnlock()

	if cached != nil && time.Since(fetchedAt) < s.ttl {
		return cached, nil
	}

	fresh, err := s.provider.Fetch(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "configuration unavailable")
	}

	s.mu.Lock()
	s.cached = fresh
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return fresh, nil
}

// ValidateEventType rejects event types absent from the configured set.
func (s *Service) ValidateEventType(ctx context.Context, eventType string) error {
	cfg, err := s.Get(ctx)
	if err != nil {
		return err
	}
	for _, t := range cfg.EventTypes {
		if t.ID == eventType {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeBadRequest, "unknown event type %q", eventType)
}

// ValidateCertificateTemplate checks that the template is configured for the
// event type before a certificate print is recorded.
func (s *Service) ValidateCertificateTemplate(ctx context.Context, eventType, templateID string) error {
	cfg, err := s.Get(ctx)
	if err != nil {
		return err
	}
	for _, t := range cfg.EventTypes {
		if t.ID != eventType {
			continue
		}
		if slices.Contains(t.CertificateTemplates, templateID) {
			return nil
		}
		return dErrors.Newf(dErrors.CodeBadRequest, "unknown certificate template %q for event type %q", templateID, eventType)
	}
	return dErrors.Newf(dErrors.CodeBadRequest, "unknown event type %q", eventType)
}
