package catalog_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lectern/internal/catalog"
	"lectern/internal/logging"
	"lectern/internal/testsupport"
)

func newClient(t *testing.T, handler http.Handler) (*catalog.HTTPClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Catalog.BaseURL = server.URL
	cfg.Catalog.AccessKey = "test-key"
	return catalog.NewHTTPClient(cfg, logging.NewNop()), server
}

func TestListLibrariesPaginates(t *testing.T) {
	pages := map[string]string{
		"1": `{"Items":[{"Id":101,"Name":"S1-AR-Ahmed"},{"Id":102,"Name":"S1-SCI-Ahmed"}],"TotalItems":3}`,
		"2": `{"Items":[{"Id":103,"Name":"S2-EN-Sara"}],"TotalItems":3}`,
	}
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("AccessKey"); got != "test-key" {
			t.Errorf("missing access key header, got %q", got)
		}
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			t.Errorf("unexpected page request: %s", r.URL.RawQuery)
			body = `{"Items":[],"TotalItems":3}`
		}
		io.WriteString(w, body)
	}))

	libraries, err := client.ListLibraries(context.Background())
	if err != nil {
		t.Fatalf("list libraries: %v", err)
	}
	if len(libraries) != 3 {
		t.Fatalf("got %d libraries, want 3", len(libraries))
	}
	if libraries[0].ID != "101" || libraries[2].Name != "S2-EN-Sara" {
		t.Fatalf("unexpected libraries: %+v", libraries)
	}
}

func TestEnsureCollectionReturnsExistingCaseInsensitive(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			t.Error("created a collection that already exists")
		}
		io.WriteString(w, `{"items":[{"guid":"col-1","name":"t1-2026"}],"totalItems":1}`)
	}))

	col, err := client.EnsureCollection(context.Background(), "101", "T1-2026")
	if err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
	if col.ID != "col-1" {
		t.Fatalf("got %+v, want existing col-1", col)
	}
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	var created string
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			created = string(body)
			io.WriteString(w, `{"guid":"col-new","name":"T2-2026-QV"}`)
			return
		}
		io.WriteString(w, `{"items":[],"totalItems":0}`)
	}))

	col, err := client.EnsureCollection(context.Background(), "101", "T2-2026-QV")
	if err != nil {
		t.Fatalf("ensure collection: %v", err)
	}
	if col.ID != "col-new" || col.Name != "T2-2026-QV" {
		t.Fatalf("got %+v", col)
	}
	if !strings.Contains(created, "T2-2026-QV") {
		t.Fatalf("create payload %q missing collection name", created)
	}
}
