package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lunaire/sgbd/pkg/relation"
	"github.com/lunaire/sgbd/pkg/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewPageStore(dir, 256, 4)
	if err != nil {
		t.Fatalf("NewPageStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	pool := storage.NewBufferPool(4, store, storage.LRU)
	cat := relation.NewCatalog(pool, 256)

	schema := relation.Schema{
		{Name: "Id", Kind: relation.KindInt},
		{Name: "Nom", Kind: relation.KindChar, N: 10},
	}
	rel, err := cat.CreateTable("Users", schema)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if _, err := rel.InsertRecord([]any{int32(1), "Alice"}); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}

	return New(store, pool, cat)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if _, ok := body["page_store"]; !ok {
		t.Fatal("expected page_store key in stats response")
	}
	if _, ok := body["buffer_pool"]; !ok {
		t.Fatal("expected buffer_pool key in stats response")
	}
}

func TestGraphQLTableQuery(t *testing.T) {
	s := newTestServer(t)
	payload := `{"query": "{ table(name: \"Users\") { values } }"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Table []struct {
				Values []string `json:"values"`
			} `json:"table"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(body.Errors) > 0 {
		t.Fatalf("unexpected GraphQL errors: %+v", body.Errors)
	}
	if len(body.Data.Table) != 1 || body.Data.Table[0].Values[1] != "Alice" {
		t.Fatalf("unexpected table result: %+v", body.Data.Table)
	}
}

func TestBearerTokenRejectsMissingHeader(t *testing.T) {
	t.Setenv("ADMIN_TOKEN_HASH", "$2a$10$notarealhashnotarealhashnotarealhashnotarealha")
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", rec.Code)
	}
}
