package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	appLog "timegrid/internal/log"
)

// Source is one calendar subscription. URL is an http(s) endpoint, a
// file:// URL or a plain filesystem path.
type Source struct {
	ID    string
	Name  string
	URL   string
	Color string
}

// cached is the last good body of a URL with its validators.
type cached struct {
	body         []byte
	etag         string
	lastModified string
	fetchedAt    time.Time
}

// Fetcher loads ICS payloads. HTTP sources are fetched conditionally
// (ETag / Last-Modified) and fall back to the last good body when the
// server fails or is unreachable.
//
// Fetcher is safe for concurrent use.
type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cached
}

// NewFetcher returns a Fetcher using client, or a client with a 15s
// timeout when client is nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cache: make(map[string]cached)}
}

// Fetch returns the payload of src. fromCache reports whether a cached body
// was served instead of a fresh one.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (body []byte, fromCache bool, err error) {
	if src.URL == "" {
		return nil, false, fmt.Errorf("ics: source %q has no url", src.ID)
	}
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, false, fmt.Errorf("ics: source %q: %w", src.ID, err)
	}
	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, src)
	case "file":
		body, err = os.ReadFile(u.Path)
	case "":
		body, err = os.ReadFile(src.URL)
	default:
		return nil, false, fmt.Errorf("ics: source %q: unsupported scheme %q", src.ID, u.Scheme)
	}
	if err != nil {
		return nil, false, fmt.Errorf("ics: read %s: %w", src.ID, err)
	}
	return body, false, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, src Source) ([]byte, bool, error) {
	f.mu.Lock()
	prev, havePrev := f.cache[src.URL]
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, false, err
	}
	if havePrev {
		if prev.etag != "" {
			req.Header.Set("If-None-Match", prev.etag)
		}
		if prev.lastModified != "" {
			req.Header.Set("If-Modified-Since", prev.lastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if havePrev {
			appLog.Warn("ics fetch failed, serving cached body", "id", src.ID, "url", redactURL(src.URL), "err", err)
			return prev.body, true, nil
		}
		return nil, false, fmt.Errorf("ics: fetch %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("ics: read %s: %w", src.ID, err)
		}
		f.mu.Lock()
		f.cache[src.URL] = cached{
			body:         body,
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
			fetchedAt:    time.Now(),
		}
		f.mu.Unlock()
		appLog.Debug("ics fetched", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return body, false, nil

	case resp.StatusCode == http.StatusNotModified && havePrev:
		appLog.Debug("ics not modified", "id", src.ID, "url", redactURL(src.URL))
		return prev.body, true, nil

	case havePrev:
		appLog.Warn("ics fetch non-OK, serving cached body", "id", src.ID, "url", redactURL(src.URL), "status", resp.StatusCode)
		return prev.body, true, nil

	default:
		return nil, false, fmt.Errorf("ics: fetch %s: %w", src.ID, errors.New(resp.Status))
	}
}

// redactURL keeps only the scheme and host of u; subscription URLs often
// carry secrets in their path or query.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		if strings.Contains(u, "://") {
			return "ics://...(redacted)"
		}
		return u
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
