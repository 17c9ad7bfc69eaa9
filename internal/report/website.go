package report

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// MaxWebsiteChars caps the website text added to the prompt.
const MaxWebsiteChars = 4000

const maxWebsiteBody = 2 << 20

// WebsiteReader fetches the visible text of a web page.
type WebsiteReader interface {
	Read(ctx context.Context, rawURL string) (string, error)
}

type httpWebsiteReader struct {
	http         *http.Client
	allowPrivate bool
}

// WebsiteOption configures a WebsiteReader.
type WebsiteOption func(*httpWebsiteReader)

// AllowPrivateHosts lets the reader dial loopback and private addresses.
// Links come from public form submissions, so only tests should set it.
func AllowPrivateHosts() WebsiteOption {
	return func(r *httpWebsiteReader) {
		r.allowPrivate = true
	}
}

// NewWebsiteReader creates a WebsiteReader with the given request timeout.
// Connections to loopback, private, link-local and shared address space are
// refused at dial time, which also covers redirects.
func NewWebsiteReader(timeout time.Duration, opts ...WebsiteOption) WebsiteReader {
	r := &httpWebsiteReader{}
	for _, o := range opts {
		o(r)
	}

	dialer := &net.Dialer{Timeout: timeout}
	if !r.allowPrivate {
		dialer.Control = refuseNonPublic
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	r.http = &http.Client{Timeout: timeout, Transport: transport}
	return r
}

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func refuseNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return eris.Wrap(err, "website: split dial address")
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return eris.Wrap(err, "website: parse dial address")
	}
	if !publicAddr(ip) {
		return eris.Errorf("website: refusing to dial non-public address %s", ip)
	}
	return nil
}

func publicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsGlobalUnicast() && !ip.IsPrivate() && !sharedAddressSpace.Contains(ip)
}

func (r *httpWebsiteReader) Read(ctx context.Context, rawURL string) (string, error) {
	target, err := normalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", eris.Wrap(err, "website: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; opportunity-report/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "website: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", eris.Errorf("website: unexpected status %d", resp.StatusCode)
	}

	text, err := extractText(io.LimitReader(resp.Body, maxWebsiteBody))
	if err != nil {
		return "", err
	}
	return truncateRunes(text, MaxWebsiteChars), nil
}

// normalizeURL ensures a link has an http(s) scheme prefix.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.New("website: empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrap(err, "website: parse url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", eris.Errorf("website: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", eris.New("website: missing host")
	}
	return u.String(), nil
}

// extractText returns the visible text of an HTML document with whitespace
// collapsed. Script, style and similar elements are skipped.
func extractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return strings.Join(strings.Fields(b.String()), " "), nil
			}
			return "", eris.Wrap(z.Err(), "website: parse html")
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func skipTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "template", "svg", "head":
		return true
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
