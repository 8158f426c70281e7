// Package cover downloads and caches cover art images for a tagging run.
package cover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	csmap "github.com/mhmtszr/concurrent-swiss-map"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ErrMissingURL is returned when a cover is requested without a source URL.
var ErrMissingURL = errors.New("cover art has no source URL")

// FetchError reports a cover art request answered with a non-success status.
type FetchError struct {
	StatusCode int
	URL        string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cover art request returned status %d: %s", e.StatusCode, e.URL)
}

// Options configures a Cache.
type Options struct {
	// Client performs the downloads. NewClient is used when nil.
	Client *http.Client
	// Limiter throttles downloads; nil disables throttling.
	Limiter *RateLimiter
	// PersistPath enables the on-disk layer when non-empty.
	PersistPath string
	// TTL bounds how long persisted covers stay valid.
	TTL time.Duration
}

// Cache maps cover filenames to image bytes for the lifetime of a run. It is
// safe for concurrent use; concurrent requests for the same filename share a
// single download.
type Cache struct {
	client  *http.Client
	limiter *RateLimiter

	mem   *csmap.CsMap[string, []byte]
	group singleflight.Group

	disk     *cache.Cache
	diskPath string

	downloads atomic.Int64
}

// New creates a Cache. When opts.PersistPath names an existing cache file its
// entries are loaded; a corrupt file is ignored.
func New(opts Options) *Cache {
	client := opts.Client
	if client == nil {
		client = NewClient(0)
	}
	c := &Cache{
		client:  client,
		limiter: opts.Limiter,
		mem:     csmap.Create[string, []byte](),
	}

	if opts.PersistPath != "" {
		ttl := opts.TTL
		if ttl <= 0 {
			ttl = cache.NoExpiration
		}
		c.disk = cache.New(ttl, 10*time.Minute)
		c.diskPath = opts.PersistPath
		if _, err := os.Stat(c.diskPath); err == nil {
			_ = c.disk.LoadFile(c.diskPath)
		}
	}
	return c
}

// Fetch returns the image for filename, downloading it from url on first use.
// Failed downloads are not cached, so a later call retries.
func (c *Cache) Fetch(ctx context.Context, filename, url string) ([]byte, error) {
	if data, ok := c.lookup(filename); ok {
		return data, nil
	}

	// The shared download outlives any single caller's cancellation and is
	// bounded by the client timeout instead.
	dctx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(filename, func() (any, error) {
		if data, ok := c.lookup(filename); ok {
			return data, nil
		}
		data, err := c.download(dctx, url)
		if err != nil {
			return nil, err
		}
		c.mem.Store(filename, data)
		if c.disk != nil {
			c.disk.SetDefault(filename, data)
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Cache) lookup(filename string) ([]byte, bool) {
	if data, ok := c.mem.Load(filename); ok {
		return data, true
	}
	if c.disk == nil {
		return nil, false
	}
	v, ok := c.disk.Get(filename)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, false
	}
	c.mem.Store(filename, data)
	return data, true
}

func (c *Cache) download(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrMissingURL
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build cover request: %w", err)
	}
	c.downloads.Add(1)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download cover art: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{StatusCode: resp.StatusCode, URL: url}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cover art from %s: %w", url, err)
	}
	return data, nil
}

// Len reports how many covers are held in memory.
func (c *Cache) Len() int {
	return c.mem.Count()
}

// Downloads reports how many network requests the cache has issued.
func (c *Cache) Downloads() int64 {
	return c.downloads.Load()
}

// Persist writes the on-disk layer, if enabled, to its file.
func (c *Cache) Persist() error {
	if c.disk == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.diskPath), 0o755); err != nil {
		return fmt.Errorf("create cover cache directory: %w", err)
	}
	c.disk.DeleteExpired()
	if err := c.disk.SaveFile(c.diskPath); err != nil {
		return fmt.Errorf("save cover cache: %w", err)
	}
	return nil
}
