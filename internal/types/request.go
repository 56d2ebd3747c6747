package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request represents a page to be fetched.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Headers are custom HTTP headers to send with the request.
	Headers http.Header

	// Tag categorizes this request ("listing" or "detail").
	Tag string

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest creates a new GET Request.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, rawURL)
	}

	return &Request{
		URL:       u,
		Headers:   make(http.Header),
		CreatedAt: time.Now(),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}
