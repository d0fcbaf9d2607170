package eventconfig

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dErrors "civreg/pkg/domain-errors"
)

// countingProvider scripts fetch results and records how often it is hit.
type countingProvider struct {
	cfg     *Config
	err     error
	fetches int
}

func (p *countingProvider) Fetch(context.Context) (*Config, error) {
	p.fetches++
	if p.err != nil {
		return nil, p.err
	}
	return p.cfg, nil
}

func birthConfig() *Config {
	return &Config{EventTypes: []EventType{
		{ID: "V2_BIRTH", Label: "Birth", CertificateTemplates: []string{"birth-cert-v1"}},
		{ID: "TENNIS_CLUB_MEMBERSHIP", Label: "Membership"},
	}}
}

func TestServiceCaching(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches once within the TTL", func(t *testing.T) {
		provider := &countingProvider{cfg: birthConfig()}
		svc := NewService(provider, time.Hour)

		for i := 0; i < 3; i++ {
			cfg, err := svc.Get(ctx)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if len(cfg.EventTypes) != 2 {
				t.Fatalf("event types = %d, want 2", len(cfg.EventTypes))
			}
		}
		if provider.fetches != 1 {
			t.Fatalf("fetches = %d, want 1", provider.fetches)
		}
	})

	t.Run("refetches once the TTL has passed", func(t *testing.T) {
		provider := &countingProvider{cfg: birthConfig()}
		svc := NewService(provider, time.Nanosecond)

		if _, err := svc.Get(ctx); err != nil {
			t.Fatalf("get: %v", err)
		}
		time.Sleep(time.Millisecond)
		if _, err := svc.Get(ctx); err != nil {
			t.Fatalf("get: %v", err)
		}
		if provider.fetches != 2 {
			t.Fatalf("fetches = %d, want 2", provider.fetches)
		}
	})

	t.Run("failed refresh serves the stale copy", func(t *testing.T) {
		provider := &countingProvider{cfg: birthConfig()}
		svc := NewService(provider, time.Nanosecond)

		if _, err := svc.Get(ctx); err != nil {
			t.Fatalf("get: %v", err)
		}
		provider.err = errors.New("country config is down")
		time.Sleep(time.Millisecond)

		cfg, err := svc.Get(ctx)
		if err != nil {
			t.Fatalf("get with stale cache: %v", err)
		}
		if len(cfg.EventTypes) != 2 {
			t.Fatalf("stale config lost: %+v", cfg)
		}
	})

	t.Run("failure with no cache is unavailable", func(t *testing.T) {
		provider := &countingProvider{err: errors.New("country config is down")}
		svc := NewService(provider, time.Hour)

		_, err := svc.Get(ctx)
		if !dErrors.HasCode(err, dErrors.CodeUnavailable) {
			t.Fatalf("err = %v, want unavailable", err)
		}
	})
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(Static(birthConfig().EventTypes...), time.Hour)

	t.Run("configured event type passes", func(t *testing.T) {
		if err := svc.ValidateEventType(ctx, "V2_BIRTH"); err != nil {
			t.Fatalf("validate: %v", err)
		}
	})

	t.Run("unknown event type is a bad request", func(t *testing.T) {
		err := svc.ValidateEventType(ctx, "V2_MARRIAGE")
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("err = %v, want bad_request", err)
		}
	})

	t.Run("configured template passes", func(t *testing.T) {
		if err := svc.ValidateCertificateTemplate(ctx, "V2_BIRTH", "birth-cert-v1"); err != nil {
			t.Fatalf("validate: %v", err)
		}
	})

	t.Run("template from another event type is rejected", func(t *testing.T) {
		err := svc.ValidateCertificateTemplate(ctx, "TENNIS_CLUB_MEMBERSHIP", "birth-cert-v1")
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) {
			t.Fatalf("err = %v, want bad_request", err)
		}
	})
}

func TestClientFetch(t *testing.T) {
	t.Run("decodes the config endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/config" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"eventTypes":[{"id":"V2_BIRTH","label":"Birth","certificateTemplates":["birth-cert-v1"]}]}`))
		}))
		defer srv.Close()

		cfg, err := NewClient(srv.URL).Fetch(context.Background())
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(cfg.EventTypes) != 1 || cfg.EventTypes[0].ID != "V2_BIRTH" {
			t.Fatalf("config = %+v", cfg)
		}
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		if _, err := NewClient(srv.URL).Fetch(context.Background()); err == nil {
			t.Fatal("expected error for 502 response")
		}
	})
}
