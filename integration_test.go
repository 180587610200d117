//go:build integration

package scribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arawak/scribe/internal/config"
	"github.com/arawak/scribe/internal/httpapi"
	"github.com/arawak/scribe/internal/store"
	"github.com/arawak/scribe/internal/testdb"
)

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	db, dbCfg := testdb.Open(t, ctx)

	cfg := &config.Config{
		Bind:            ":0",
		DBDSN:           dbCfg.DBDSN,
		LockWaitSeconds: config.DefaultLockWaitSeconds,
		MaxTags:         config.DefaultMaxTags,
		RequestTimeout:  30 * time.Second,
		SwaggerUIPath:   "/swagger",
		OpenAPIPath:     "/openapi.yaml",
		MetricsPath:     "/metrics",
	}
	st := store.New(db, store.WithMaxTags(cfg.MaxTags))
	ts := httptest.NewServer(httpapi.NewRouter(cfg, st, nil))
	t.Cleanup(ts.Close)

	base := ts.URL + "/api/blog"
	first := createAndValidate(t, base, map[string]any{"title": "Hello", "content": "First post about gophers", "category": "intro", "tags": []any{"Go", "go", "GO!", 42, "Solo"}})
	if len(first.Tags) != 2 || first.Tags[0] != "go" || first.Tags[1] != "solo" {
		t.Fatalf("unexpected tags %v", first.Tags)
	}
	second := createAndValidate(t, base, map[string]any{"title": "Second", "content": "Another", "tags": []string{"go"}})

	getPost(t, base, first.Id, http.StatusOK)
	updatePost(t, base, first.Id)
	searchPosts(t, base+"?term=GOPHER", first.Id)
	searchPosts(t, base+"?term=does-not-occur", 0)

	deletePost(t, base, first.Id, http.StatusNoContent)
	getPost(t, base, first.Id, http.StatusNotFound)
	deletePost(t, base, first.Id, http.StatusNotFound)
	ensureTags(t, ts.URL+"/api/tags", []string{"go"})

	deletePost(t, base, second.Id, http.StatusNoContent)
	ensureTags(t, ts.URL+"/api/tags", nil)
	readyz(t, ts.URL+"/readyz")
}

func doJSON(t *testing.T, method, url string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d body %s", status, resp.StatusCode, string(body))
	}
}

func createAndValidate(t *testing.T, url string, payload map[string]any) httpapi.Post {
	resp := doJSON(t, http.MethodPost, url, payload)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	var post httpapi.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		t.Fatalf("decode post: %v", err)
	}
	if post.Id == 0 {
		t.Fatalf("missing post id")
	}
	if !post.CreatedAt.Equal(post.UpdatedAt.Time) {
		t.Fatalf("createdAt %v != updatedAt %v", post.CreatedAt, post.UpdatedAt)
	}
	return post
}

func getPost(t *testing.T, base string, id int64, status int) {
	resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/%d", base, id), nil)
	defer resp.Body.Close()
	expectStatus(t, resp, status)
}

func updatePost(t *testing.T, base string, id int64) {
	tags := make([]string, 15)
	for i := range tags {
		tags[i] = fmt.Sprintf("bulk%d", i)
	}
	resp := doJSON(t, http.MethodPut, fmt.Sprintf("%s/%d", base, id), map[string]any{"title": "Hello again", "content": "Still about gophers", "tags": tags})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	var post httpapi.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		t.Fatalf("decode post: %v", err)
	}
	if len(post.Tags) != store.DefaultMaxTags {
		t.Fatalf("expected %d tags, got %v", store.DefaultMaxTags, post.Tags)
	}
	if post.Category != nil {
		t.Fatalf("expected category cleared, got %q", *post.Category)
	}

	missing := doJSON(t, http.MethodPut, fmt.Sprintf("%s/%d", base, id+1000), map[string]any{"title": "x", "content": "y"})
	defer missing.Body.Close()
	expectStatus(t, missing, http.StatusNotFound)

	bad := doJSON(t, http.MethodPut, fmt.Sprintf("%s/%d", base, id), map[string]any{"title": string(make([]byte, 201)), "content": "y"})
	defer bad.Body.Close()
	expectStatus(t, bad, http.StatusBadRequest)
}

func searchPosts(t *testing.T, url string, id int64) {
	resp := doJSON(t, http.MethodGet, url, nil)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	var posts []httpapi.Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if id == 0 {
		if len(posts) != 0 {
			t.Fatalf("expected no results, got %+v", posts)
		}
		return
	}
	if len(posts) != 1 || posts[0].Id != id {
		t.Fatalf("search did not return post %d: %+v", id, posts)
	}
}

func deletePost(t *testing.T, base string, id int64, status int) {
	resp := doJSON(t, http.MethodDelete, fmt.Sprintf("%s/%d", base, id), nil)
	defer resp.Body.Close()
	expectStatus(t, resp, status)
}

func ensureTags(t *testing.T, url string, want []string) {
	resp := doJSON(t, http.MethodGet, url, nil)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	var res httpapi.TagListResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode tags: %v", err)
	}
	if len(res.Items) != len(want) {
		t.Fatalf("expected tags %v, got %+v", want, res.Items)
	}
	for i, name := range want {
		if res.Items[i].Name != name {
			t.Fatalf("expected tags %v, got %+v", want, res.Items)
		}
	}
}

func readyz(t *testing.T, url string) {
	resp := doJSON(t, http.MethodGet, url, nil)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
}
