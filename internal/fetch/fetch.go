// Package fetch is the outbound HTTP client used for product pages and
// remote images. Every call is bounded by a timeout and a body cap.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	BrowserUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	WhatsAppUA = "WhatsApp/2.23.20.0 A"
	FacebookUA = "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)"

	AcceptHTML  = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptImage = "image/webp,image/jpeg,image/png,image/*;q=0.8,*/*;q=0.5"
)

const (
	DefaultTimeout  = 8 * time.Second
	DefaultMaxBytes = 15 << 20
)

var (
	ErrScheme   = errors.New("unsupported url scheme")
	ErrTooLarge = errors.New("response body too large")
)

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

type Request struct {
	UserAgent string
	Accept    string
	Referer   string
	// Timeout overrides the client default when positive.
	Timeout  time.Duration
	MaxBytes int64
}

type Response struct {
	Body        []byte
	ContentType string
	// URL is the final location after redirects.
	URL *url.URL
}

type Client struct {
	http    *http.Client
	timeout time.Duration
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("stopped after 5 redirects")
				}
				return nil
			},
		},
		timeout: timeout,
	}
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) Get(ctx context.Context, rawURL string, r Request) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrScheme, u.Scheme)
	}

	timeout := c.timeout
	if r.Timeout > 0 {
		timeout = r.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	ua := r.UserAgent
	if ua == "" {
		ua = BrowserUA
	}
	req.Header.Set("User-Agent", ua)
	if r.Accept != "" {
		req.Header.Set("Accept", r.Accept)
	}
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")
	if r.Referer != "" {
		req.Header.Set("Referer", r.Referer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: u.String()}
	}

	limit := r.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, ErrTooLarge
	}

	return &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL,
	}, nil
}
