package media

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Fetcher downloads remote resources into a content-addressed local cache.
// The cache key is derived from the URL alone, so a re-fetch of an already
// cached resource is a no-op.
type Fetcher struct {
	cacheDir string
	client   *http.Client
}

func NewFetcher(cacheDir string, connectTimeout, downloadTimeout time.Duration) *Fetcher {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &Fetcher{
		cacheDir: cacheDir,
		client: &http.Client{
			Timeout: downloadTimeout,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
	}
}

// CacheKey returns the stable cache file name for a URL.
func (f *Fetcher) CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// CachePath returns the local path a URL resolves to, fetched or not.
func (f *Fetcher) CachePath(url string) string {
	return filepath.Join(f.cacheDir, f.CacheKey(url))
}

// Fetch downloads a URL into the cache and returns the local path and the
// file size. A cache hit short-circuits the network entirely. Downloads go
// through a temp file and a rename, so a crashed fetch never leaves a
// partial file under the final key.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, int64, error) {
	path := f.CachePath(url)
	if info, err := os.Stat(path); err == nil {
		return path, info.Size(), nil
	}

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.cacheDir, "fetch-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	size, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("download %s: %w", url, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("commit cache file: %w", err)
	}
	return path, size, nil
}

// MD5File computes the lowercase hex MD5 checksum of a cached file.
func MD5File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
