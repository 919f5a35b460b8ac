// Package assets materializes remote resources into local files with
// fetch-once semantics.
//
// The cache maps a URL to the local path its content was downloaded to. A
// given URL is fetched at most once per cache lifetime: concurrent Get calls
// for the same uncached URL are collapsed onto a single transport invocation
// via a check-and-reserve entry, and later calls return the stored path with
// no network access. Failed fetches are not committed, so a subsequent call
// retries.
//
// The cache is an explicit object handed to the engine at construction; there
// is no package-level state. Tests inject a counting or failing Transport and
// call Reset between cases.
package assets

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"sync"

	"github.com/inlaymedia/inlay/internal/errors"
)

// Transport performs the raw network copy of a URL into a destination writer.
type Transport interface {
	Fetch(ctx context.Context, rawURL string, dst io.Writer) error
}

// Cache maps URLs to locally materialized file paths.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	dir       string
	transport Transport
}

// entry is the per-URL reservation. The goroutine that created the entry owns
// the fetch; everyone else blocks on done and then reads path or err.
type entry struct {
	done chan struct{}
	path string
	err  error
}

// NewCache creates a cache that materializes downloads under dir using the
// given transport. An empty dir selects the system temp directory; a nil
// transport selects the default HTTP transport.
func NewCache(dir string, transport Transport) *Cache {
	if transport == nil {
		transport = NewHTTPTransport()
	}
	return &Cache{
		entries:   make(map[string]*entry),
		dir:       dir,
		transport: transport,
	}
}

// Get returns the local path for rawURL, fetching and committing it on first
// use. The call blocks until the download completes or fails; there is no
// partial result. On failure the URL is left uncached and the error satisfies
// errors.IsFetchError.
func (c *Cache) Get(ctx context.Context, rawURL string) (string, error) {
	c.mu.Lock()
	if e, ok := c.entries[rawURL]; ok {
		c.mu.Unlock()
		<-e.done
		if e.err != nil {
			return "", e.err
		}
		return e.path, nil
	}

	// Reserve the URL before releasing the lock so a concurrent Get for the
	// same URL waits on this entry instead of starting a second fetch.
	e := &entry{done: make(chan struct{})}
	c.entries[rawURL] = e
	c.mu.Unlock()

	localPath, err := c.fetch(ctx, rawURL)
	if err != nil {
		e.err = errors.NewFetchError(rawURL, err)
		c.mu.Lock()
		delete(c.entries, rawURL)
		c.mu.Unlock()
		close(e.done)
		return "", e.err
	}

	e.path = localPath
	close(e.done)
	return localPath, nil
}

// fetch downloads rawURL into a fresh temporary file and returns its path.
func (c *Cache) fetch(ctx context.Context, rawURL string) (string, error) {
	dir := c.dir
	if dir == "" {
		dir = os.TempDir()
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	pattern := "inlay-*" + remoteExt(rawURL)
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}

	if err := c.transport.Fetch(ctx, rawURL, f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Len returns the number of committed or in-flight entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Lookup reports the cached path for rawURL without fetching.
func (c *Cache) Lookup(rawURL string) (string, bool) {
	c.mu.Lock()
	e, ok := c.entries[rawURL]
	c.mu.Unlock()
	if !ok {
		return "", false
	}
	select {
	case <-e.done:
	default:
		return "", false
	}
	if e.err != nil {
		return "", false
	}
	return e.path, true
}

// Reset drops every cache entry. Materialized files are left on disk; they
// live in the cache directory and are reclaimed with it. Intended for test
// isolation and explicit cache maintenance.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Dir returns the directory downloads are materialized under.
func (c *Cache) Dir() string {
	if c.dir == "" {
		return os.TempDir()
	}
	return c.dir
}

// SchemeOf returns the lowercase URL scheme of a locator, or "" when the
// locator does not parse as a URL with a scheme.
func SchemeOf(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return ""
	}
	return u.Scheme
}

// remoteExt derives a filename extension from the URL path so downstream
// consumers that sniff by extension keep working. Unknown shapes yield "".
func remoteExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	if len(ext) > 8 {
		// Not a plausible extension, likely a dotted path segment.
		return ""
	}
	return ext
}
