package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	RepoOwner = "khanglvm"
	RepoName  = "cofounder-hub"
	UpdateURL = "https://api.github.com/repos/" + RepoOwner + "/" + RepoName + "/releases/latest"
)

// checkInterval is how long a successful check is cached.
const checkInterval = 24 * time.Hour

var checkMu sync.Mutex

// GitHubRelease represents a GitHub release API response.
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// UpdateCache stores update check state.
type UpdateCache struct {
	LastUpdateCheck  time.Time `json:"lastUpdateCheck"`
	LastKnownVersion string    `json:"lastKnownVersion"`
}

// Checker looks up the latest published release.
type Checker struct {
	URL       string
	CachePath string
	Client    *http.Client
	Logger    *slog.Logger
}

// NewChecker returns a checker against the project's GitHub releases with
// the cache stored under ~/.cofounder.
func NewChecker(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	path, err := getCachePath()
	if err != nil {
		path = ""
	}
	return &Checker{
		URL:       UpdateURL,
		CachePath: path,
		Client:    &http.Client{Timeout: 10 * time.Second},
		Logger:    logger,
	}
}

// CheckUpdate returns the latest version when it differs from current, or ""
// when current is up to date. Results are cached for 24h.
func (c *Checker) CheckUpdate(ctx context.Context, current string) (string, error) {
	checkMu.Lock()
	defer checkMu.Unlock()

	cache, err := c.loadCache()
	if err == nil && time.Since(cache.LastUpdateCheck) < checkInterval {
		return newer(cache.LastKnownVersion, current), nil
	}
	if cache == nil {
		cache = &UpdateCache{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var release GitHubRelease
	if err := json.Unmarshal(body, &release); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	cache.LastUpdateCheck = time.Now()
	cache.LastKnownVersion = latest
	if err := c.saveCache(cache); err != nil {
		c.logger().Warn("failed to save update cache", "error", err)
	}

	return newer(latest, current), nil
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func newer(latest, current string) string {
	if latest == "" || latest == strings.TrimPrefix(current, "v") {
		return ""
	}
	return latest
}

// getCachePath returns the path to the update cache file.
func getCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cofounder", "update-cache.json"), nil
}

func (c *Checker) loadCache() (*UpdateCache, error) {
	if c.CachePath == "" {
		return &UpdateCache{}, fmt.Errorf("no cache path")
	}
	data, err := os.ReadFile(c.CachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &UpdateCache{}, nil
		}
		return nil, err
	}

	var cache UpdateCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return &UpdateCache{}, nil
	}
	return &cache, nil
}

func (c *Checker) saveCache(cache *UpdateCache) error {
	if c.CachePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.CachePath), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.CachePath, data, 0644)
}
