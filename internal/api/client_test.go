package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientVerbs(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	var gotMethod, gotPath, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		gotBody = buf.Bytes()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(payload{Name: "ok"})
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.URL)

	var out payload
	if err := c.Get(ctx, "/api/books/1", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotMethod != http.MethodGet || gotPath != "/api/books/1" || out.Name != "ok" {
		t.Fatalf("Get: method=%s path=%s out=%+v", gotMethod, gotPath, out)
	}

	if err := c.Post(ctx, "/api/books", payload{Name: "in"}, &out); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if gotMethod != http.MethodPost || gotContentType != "application/json" {
		t.Fatalf("Post: method=%s content-type=%q", gotMethod, gotContentType)
	}
	if !bytes.Contains(gotBody, []byte(`"in"`)) {
		t.Fatalf("Post body = %s", gotBody)
	}

	if err := c.Patch(ctx, "/api/books/1", payload{Name: "upd"}, &out); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Fatalf("Patch method = %s", gotMethod)
	}

	if err := c.Delete(ctx, "/api/books/1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("Delete method = %s", gotMethod)
	}
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "book 7: not found"})
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Get(context.Background(), "/api/books/7", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "book 7: not found") {
		t.Fatalf("error = %v", err)
	}
}

func TestOutputFormats(t *testing.T) {
	data := map[string]int{"pages": 3}

	SetOutputFormat("json")
	var buf bytes.Buffer
	if err := encodeOutput(&buf, data); err != nil {
		t.Fatalf("encodeOutput json: %v", err)
	}
	if !strings.Contains(buf.String(), `"pages": 3`) {
		t.Fatalf("json output = %q", buf.String())
	}

	// Unknown formats fall back to yaml.
	SetOutputFormat("toml")
	buf.Reset()
	if err := encodeOutput(&buf, data); err != nil {
		t.Fatalf("encodeOutput yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "pages: 3") {
		t.Fatalf("yaml output = %q", buf.String())
	}
}
