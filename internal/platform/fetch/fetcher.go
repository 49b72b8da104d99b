package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

var (
	// ErrUnsupportedURL is returned for URLs that are not absolute http(s).
	ErrUnsupportedURL = errors.New("unsupported image url")

	// ErrBlockedAddress is returned when the destination resolves to a
	// private, loopback, link-local or otherwise internal address.
	ErrBlockedAddress = errors.New("destination address not allowed")

	// ErrNotImage is returned when the response is not an image.
	ErrNotImage = errors.New("response is not an image")

	// ErrTooLarge is returned when the body exceeds the configured limit.
	ErrTooLarge = errors.New("image exceeds size limit")

	// ErrFetchFailed is returned for unsuccessful HTTP responses.
	ErrFetchFailed = errors.New("image fetch failed")
)

// Image is a downloaded image.
type Image struct {
	URL      string
	MIMEType string
	Data     []byte
}

// Fetcher downloads a single image.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Image, error)
}

// Config controls HTTPFetcher.
type Config struct {
	Timeout      time.Duration
	MaxBytes     int64
	AllowPrivate bool
	MaxRetries   uint64
	RetryDelay   time.Duration
	UserAgent    string
}

// DefaultConfig returns the settings the worker uses unless configured.
func DefaultConfig() Config {
	return Config{
		Timeout:    15 * time.Second,
		MaxBytes:   5 << 20,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
		UserAgent:  "bookmark-enricher/1.0",
	}
}

// HTTPFetcher fetches images over HTTP.
type HTTPFetcher struct {
	client *http.Client
	cfg    Config
	logger *slog.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates an HTTPFetcher. Unless cfg.AllowPrivate is set,
// every dialed address is checked after DNS resolution, so hostnames that
// resolve to internal addresses are refused as well.
func NewHTTPFetcher(cfg Config, logger *slog.Logger) *HTTPFetcher {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	if !cfg.AllowPrivate {
		dialer.Control = guardAddress
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("stopped after 5 redirects")
				}
				return checkScheme(req.URL)
			},
		},
		cfg:    cfg,
		logger: logger.With("component", "image_fetcher"),
	}
}

// Fetch downloads rawURL. Transient failures (network errors, 429 and
// 5xx) are retried; everything else fails immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if err := checkScheme(u); err != nil {
		return nil, err
	}
	if !f.cfg.AllowPrivate {
		if addr, err := netip.ParseAddr(u.Hostname()); err == nil && blocked(addr) {
			return nil, fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
		}
	}

	b := retry.WithMaxRetries(f.cfg.MaxRetries, retry.NewExponential(f.cfg.RetryDelay))
	attempt := 0
	return retry.DoValue(ctx, b, func(ctx context.Context) (*Image, error) {
		attempt++
		img, err := f.fetchOnce(ctx, u.String())
		if err != nil && transient(err) {
			f.logger.DebugContext(ctx, "transient image fetch failure",
				"url", u.Redacted(),
				"attempt", attempt,
				"error", err)
			return nil, retry.RetryableError(err)
		}
		return img, err
	})
}

// statusError carries the HTTP status of a failed fetch.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrFetchFailed, e.code)
}

func (e *statusError) Unwrap() error { return ErrFetchFailed }

func transient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	switch {
	case errors.Is(err, ErrBlockedAddress), errors.Is(err, ErrNotImage),
		errors.Is(err, ErrTooLarge), errors.Is(err, ErrUnsupportedURL),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode}
	}

	if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil && n > f.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.cfg.MaxBytes)
	}

	mimeType := mediaType(resp.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mediaType(http.DetectContentType(data))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}

	return &Image{URL: rawURL, MIMEType: mimeType, Data: data}, nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

func checkScheme(u *url.URL) error {
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrUnsupportedURL, u.Redacted())
	}
	return nil
}

// guardAddress is a net.Dialer control hook run after name resolution.
func guardAddress(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if blocked(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
	}
	return nil
}

// blocked reports addresses that must never be fetched on behalf of a user.
func blocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsValid() ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		cgnat.Contains(addr)
}

var cgnat = netip.MustParsePrefix("100.64.0.0/10")
