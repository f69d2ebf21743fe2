package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testChecker(t *testing.T, tag string, hits *int32) *Checker {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.Header.Get("Accept") != "application/vnd.github.v3+json" {
			t.Errorf("unexpected Accept header %q", r.Header.Get("Accept"))
		}
		w.Write([]byte(`{"tag_name":"` + tag + `","html_url":"https://example.com"}`))
	}))
	t.Cleanup(srv.Close)

	return &Checker{
		URL:       srv.URL,
		CachePath: filepath.Join(t.TempDir(), "cache.json"),
		Client:    srv.Client(),
		Logger:    nil,
	}
}

func TestCheckUpdate(t *testing.T) {
	tests := []struct {
		name    string
		current string
		tag     string
		want    string
	}{
		{"update available - patch", "1.0.0", "v1.0.1", "1.0.1"},
		{"update available - major", "1.0.0", "v2.0.0", "2.0.0"},
		{"same version", "1.0.0", "v1.0.0", ""},
		{"current with v prefix", "v1.0.0", "v1.0.0", ""},
		{"no release tag", "1.0.0", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			c := testChecker(t, tt.tag, &hits)
			got, err := c.CheckUpdate(context.Background(), tt.current)
			if err != nil {
				t.Fatalf("CheckUpdate() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckUpdate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckUpdateUsesCache(t *testing.T) {
	var hits int32
	c := testChecker(t, "v1.2.3", &hits)

	for i := 0; i < 3; i++ {
		got, err := c.CheckUpdate(context.Background(), "1.0.0")
		if err != nil {
			t.Fatalf("CheckUpdate() failed: %v", err)
		}
		if got != "1.2.3" {
			t.Errorf("CheckUpdate() = %q, want 1.2.3", got)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
}

func TestCheckUpdateStaleCache(t *testing.T) {
	var hits int32
	c := testChecker(t, "v1.2.3", &hits)
	if err := c.saveCache(&UpdateCache{
		LastUpdateCheck:  time.Now().Add(-48 * time.Hour),
		LastKnownVersion: "1.0.0",
	}); err != nil {
		t.Fatalf("saveCache() failed: %v", err)
	}

	got, err := c.CheckUpdate(context.Background(), "1.0.0")
	if err != nil {
		t.Fatalf("CheckUpdate() failed: %v", err)
	}
	if got != "1.2.3" || atomic.LoadInt32(&hits) != 1 {
		t.Errorf("expected a fresh lookup returning 1.2.3, got %q after %d requests", got, hits)
	}
}

func TestCheckUpdateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := &Checker{URL: srv.URL, CachePath: filepath.Join(t.TempDir(), "c.json"), Client: srv.Client()}
	if _, err := c.CheckUpdate(context.Background(), "1.0.0"); err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestGetCachePath(t *testing.T) {
	path, err := getCachePath()
	if err != nil {
		t.Fatalf("getCachePath() failed: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join(".cofounder", "update-cache.json")) {
		t.Errorf("Path %q does not end with the cache filename", path)
	}
}

func TestGitHubReleaseConstants(t *testing.T) {
	expectedURL := "https://api.github.com/repos/" + RepoOwner + "/" + RepoName + "/releases/latest"
	if UpdateURL != expectedURL {
		t.Errorf("UpdateURL = %q, want %q", UpdateURL, expectedURL)
	}
}

func TestFormatVersion(t *testing.T) {
	if got := FormatVersion("dev", "x", "y"); got != "dev (development build)" {
		t.Errorf("FormatVersion(dev) = %q", got)
	}
	if got := FormatVersion("v1.0.0", "abc", "2026-01-01"); got != "v1.0.0 (commit: abc, built: 2026-01-01)" {
		t.Errorf("FormatVersion() = %q", got)
	}
}
