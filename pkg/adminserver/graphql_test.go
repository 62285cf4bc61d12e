package adminserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGraphQLPoolStatsQuery(t *testing.T) {
	s := testServer(t)

	body, _ := json.Marshal(map[string]string{
		"query": `{ poolStats { shardCount totals { framesResident } } }`,
	})
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	// GraphQL is off by default; enable it directly on this server's
	// router the same way New would if cfg.EnableGraphQL were set.
	if err := s.setupGraphQLRoutes(); err != nil {
		t.Fatalf("setupGraphQLRoutes: %v", err)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			PoolStats struct {
				ShardCount int `json:"shardCount"`
			} `json:"poolStats"`
		} `json:"data"`
		Errors []map[string]interface{} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Errors) > 0 {
		t.Fatalf("unexpected graphql errors: %v", resp.Errors)
	}
	if resp.Data.PoolStats.ShardCount != 2 {
		t.Fatalf("expected shardCount 2, got %d", resp.Data.PoolStats.ShardCount)
	}
}

func TestGraphQLRejectsGetRequests(t *testing.T) {
	s := testServer(t)
	if err := s.setupGraphQLRoutes(); err != nil {
		t.Fatalf("setupGraphQLRoutes: %v", err)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
