// Package httpderef implements the http/https Dereferencer: a bounded
// http.Client fronted by a per-host circuit breaker, with
// Accept-Encoding negotiation and netrc-sourced basic-auth credentials.
package httpderef

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/sysbot/go-netrc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ripplecache/ripplecache/pkg/circuitbreaker"
	"github.com/ripplecache/ripplecache/pkg/dereference"
	"github.com/ripplecache/ripplecache/pkg/redirect"
	"github.com/ripplecache/ripplecache/pkg/store"
)

const (
	otelPackageName = "github.com/ripplecache/ripplecache/pkg/dereference/httpderef"

	defaultHTTPTimeout = 3 * time.Second

	breakerFailureThreshold = 5
	breakerResetTimeout     = 30 * time.Second
)

// ErrTransportCastError is returned if http.DefaultTransport cannot be
// cast to *http.Transport, which setupHTTPClient relies on to clone and
// tighten dial/response timeouts.
var ErrTransportCastError = errors.New("httpderef: unable to cast http.DefaultTransport to *http.Transport")

// ErrCircuitOpen is returned when a host's circuit breaker is open.
var ErrCircuitOpen = errors.New("httpderef: circuit breaker open for host")

// ErrUnexpectedStatus is returned for a non-2xx/3xx response.
var ErrUnexpectedStatus = errors.New("httpderef: unexpected HTTP status code")

// Options configures a Dereferencer.
type Options struct {
	// DialerTimeout bounds TCP connection establishment. Defaults to 3s.
	DialerTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers. Defaults to 3s.
	ResponseHeaderTimeout time.Duration

	// Netrc supplies basic-auth credentials per host, looked up by
	// hostname via Netrc.FindMachine. May be nil.
	Netrc *netrc.Netrc

	// Redirects records observed redirects. Required.
	Redirects *redirect.Manager

	// Store opens connections for recording redirects. Required.
	Store store.Factory
}

// Dereferencer fetches http/https IRIs.
type Dereferencer struct {
	httpClient *http.Client
	breakers   *circuitbreaker.Registry
	netrcData  *netrc.Netrc
	redirects  *redirect.Manager
	store      store.Factory
}

// New builds an http/https Dereferencer from opts.
func New(opts Options) (*Dereferencer, error) {
	dialerTimeout := opts.DialerTimeout
	if dialerTimeout <= 0 {
		dialerTimeout = defaultHTTPTimeout
	}

	responseHeaderTimeout := opts.ResponseHeaderTimeout
	if responseHeaderTimeout <= 0 {
		responseHeaderTimeout = defaultHTTPTimeout
	}

	dtP, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, ErrTransportCastError
	}

	dt := dtP.Clone()
	dt.DialContext = (&net.Dialer{Timeout: dialerTimeout, KeepAlive: 30 * time.Second}).DialContext
	dt.ResponseHeaderTimeout = responseHeaderTimeout
	// Disable automatic compression handling so the Accept-Encoding
	// negotiation below (br, zstd, gzip) controls what the server sends.
	dt.DisableCompression = true

	return &Dereferencer{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(dt),
			// Redirects are never followed here: Dereference records the
			// hop through Redirects and reports the 3xx as (nil, nil).
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error { return http.ErrUseLastResponse },
		},
		breakers:  circuitbreaker.NewRegistry(breakerFailureThreshold, breakerResetTimeout),
		netrcData: opts.Netrc,
		redirects: opts.Redirects,
		store:     opts.Store,
	}, nil
}

// Dereference fetches iri. A 3xx response is recorded as a redirect and
// reported as "no new work" (nil, nil), per §4.3: the orchestrator
// treats a freshly-discovered redirect the same as a cache lookup on the
// target.
func (d *Dereferencer) Dereference(ctx context.Context, iri string) (*dereference.Representation, error) {
	u, err := url.Parse(iri)
	if err != nil {
		return nil, fmt.Errorf("httpderef: parsing %q: %w", iri, err)
	}

	breaker := d.breakers.For(u.Hostname())
	if !breaker.AllowRequest() {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, u.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iri, nil)
	if err != nil {
		return nil, fmt.Errorf("httpderef: building request: %w", err)
	}

	req.Header.Set("Accept-Encoding", "br, zstd, gzip")
	d.applyCredentials(req, u.Hostname())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		breaker.RecordFailure()

		return nil, fmt.Errorf("httpderef: fetching %q: %w", iri, err)
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		defer func() { _ = resp.Body.Close() }()

		return nil, d.recordRedirect(ctx, iri, resp)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		breaker.RecordFailure()

		return nil, fmt.Errorf("%w: %d for %q", ErrUnexpectedStatus, resp.StatusCode, iri)
	}

	breaker.RecordSuccess()

	body, err := decodeBody(resp)
	if err != nil {
		defer func() { _ = resp.Body.Close() }()

		return nil, fmt.Errorf("httpderef: decoding response body: %w", err)
	}

	return &dereference.Representation{
		MediaType: mediaTypeOf(resp.Header.Get("Content-Type")),
		Body:      body,
	}, nil
}

func (d *Dereferencer) applyCredentials(req *http.Request, hostname string) {
	if d.netrcData == nil {
		return
	}

	machine := d.netrcData.FindMachine(hostname)
	if machine == nil {
		return
	}

	req.SetBasicAuth(machine.Login, machine.Password)
}

func (d *Dereferencer) recordRedirect(ctx context.Context, source string, resp *http.Response) error {
	location := resp.Header.Get("Location")
	if location == "" {
		return fmt.Errorf("%w: redirect with no Location header for %q", ErrUnexpectedStatus, source)
	}

	target, err := resp.Request.URL.Parse(location)
	if err != nil {
		return fmt.Errorf("httpderef: parsing redirect Location %q: %w", location, err)
	}

	conn, err := d.store.NewConnection(ctx)
	if err != nil {
		return fmt.Errorf("httpderef: opening store connection to record redirect: %w", err)
	}

	if err := d.redirects.Record(ctx, source, target.String(), conn); err != nil {
		return fmt.Errorf("httpderef: recording redirect: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("source", source).Str("target", target.String()).
		Msg("httpderef: recorded redirect")

	return nil
}

// mediaTypeOf strips parameters (charset, etc.) from a Content-Type
// header, leaving the bare media type the RDFizer registry matches on.
func mediaTypeOf(contentType string) string {
	for i, r := range contentType {
		if r == ';' {
			return contentType[:i]
		}
	}

	return contentType
}

// decodeBody wraps resp.Body in a decompressing reader according to
// Content-Encoding, since DisableCompression left that to us.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}

		return &zstdReadCloser{zr: zr, underlying: resp.Body}, nil
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}

		return gz, nil
	default:
		return resp.Body, nil
	}
}

// zstdReadCloser adapts *zstd.Decoder (which has no error-returning
// Close) to io.ReadCloser, also closing the underlying HTTP body.
type zstdReadCloser struct {
	zr         *zstd.Decoder
	underlying io.ReadCloser
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.zr.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.zr.Close()

	return z.underlying.Close()
}
