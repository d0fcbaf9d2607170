// Package search pushes derived event views to the search collaborator. The
// index is an eventually-consistent cache of the action log; it is never
// consulted for transition validation and a failed push is logged, not
// retried inline. Reindex exists to reconcile after drift.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPIndexer implements the indexing port against the search service.
type HTTPIndexer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPIndexer(baseURL string) *HTTPIndexer {
	return &HTTPIndexer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Index pushes one derived event view.
func (i *HTTPIndexer) Index(ctx context.Context, view any) error {
	body, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal index payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/events/index", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("push to search index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push to search index: unexpected status %d", resp.StatusCode)
	}
	return nil
}
