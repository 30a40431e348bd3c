package profile

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	cacheEnvVar        = "TYPEWRITER_CACHE_DIR"
	cacheSubdir        = "typewriter/sources"
	cacheTTL           = 24 * time.Hour
	partialSuffix      = ".part"
	metaSuffix         = ".meta"
	defaultHTTPTimeout = 30 * time.Second
)

// sourceCache keeps remote phrase sources on disk and revalidates them with
// conditional requests once they are older than cacheTTL.
type sourceCache struct {
	dir    string
	client *http.Client
}

type sourceMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

func newSourceCache(client *http.Client) (*sourceCache, error) {
	dir := os.Getenv(cacheEnvVar)
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "typewriter-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &sourceCache{dir: dir, client: client}, nil
}

// Fetch returns a local path for sourceURL. A stale copy is served when the
// refresh fails.
func (c *sourceCache) Fetch(ctx context.Context, sourceURL string) (string, error) {
	bodyPath, metaPath, partialPath := c.pathsFor(cacheKey(sourceURL))

	info, statErr := os.Stat(bodyPath)
	if statErr == nil && info.Size() > 0 && time.Since(info.ModTime()) < cacheTTL {
		return bodyPath, nil
	}
	if statErr != nil {
		info = nil
	}

	meta, _ := readMeta(metaPath)
	p, err := c.download(ctx, sourceURL, bodyPath, metaPath, partialPath, meta, info)
	if err == nil {
		return p, nil
	}
	if info != nil && info.Size() > 0 {
		log.Printf("[profile] refresh %s failed, serving cached copy: %v", sourceURL, err)
		return bodyPath, nil
	}
	return "", err
}

func (c *sourceCache) download(ctx context.Context, sourceURL, bodyPath, metaPath, partialPath string, meta sourceMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch phrases: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if current == nil {
			return "", fmt.Errorf("fetch phrases: %s returned 304 without a cached copy", sourceURL)
		}
		now := time.Now()
		if err := os.Chtimes(bodyPath, now, now); err != nil {
			return "", err
		}
		meta.CachedAt = now.UTC()
		if err := writeMeta(metaPath, meta); err != nil {
			return "", err
		}
		return bodyPath, nil
	case http.StatusOK:
		return c.saveBody(resp, bodyPath, metaPath, partialPath)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch phrases: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}
}

func (c *sourceCache) saveBody(resp *http.Response, bodyPath, metaPath, partialPath string) (string, error) {
	file, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(partialPath, bodyPath); err != nil {
		return "", err
	}

	meta := sourceMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(bodyPath); err == nil {
		meta.Size = info.Size()
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return "", err
	}
	return bodyPath, nil
}

func (c *sourceCache) pathsFor(key string) (string, string, string) {
	return filepath.Join(c.dir, key), filepath.Join(c.dir, key+metaSuffix), filepath.Join(c.dir, key+partialSuffix)
}

// cacheKey hashes the URL and keeps its extension so the cached body is
// parsed the same way as the source.
func cacheKey(sourceURL string) string {
	sum := sha1.Sum([]byte(sourceURL))
	key := hex.EncodeToString(sum[:])
	ext := strings.ToLower(path.Ext(strings.SplitN(sourceURL, "?", 2)[0]))
	if ext == ".pdf" || ext == ".txt" {
		key += ext
	}
	return key
}

func readMeta(p string) (sourceMeta, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return sourceMeta{}, err
	}
	var meta sourceMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return sourceMeta{}, err
	}
	return meta, nil
}

func writeMeta(p string, meta sourceMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}
