// Package dnsclient performs single-nameserver DNS lookups for the
// resolution pipeline. Each Lookup queries exactly one nameserver so
// that disagreeing answers across nameservers surface instead of being
// hidden by resolver-side fallback. A and AAAA records are queried
// concurrently and intermediate CNAME answers are preserved.
package dnsclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/miekg/dns"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyMsg is returned when the DNS response message is empty.
	ErrEmptyMsg = fmt.Errorf("empty message")
	// ErrEmptyHostname is returned when an empty hostname is provided.
	ErrEmptyHostname = fmt.Errorf("empty hostname")
)

// DefaultNameservers is the built-in resolver set used when the caller
// supplies none: Google and Cloudflare public DNS, IPv4 and IPv6.
var DefaultNameservers = []string{
	"8.8.8.8:53",
	"8.8.4.4:53",
	"[2001:4860:4860::8888]:53",
	"[2001:4860:4860::8844]:53",
	"1.1.1.1:53",
	"1.0.0.1:53",
	"[2606:4700:4700::1111]:53",
	"[2606:4700:4700::1001]:53",
}

// LookupError is a resolution failure that carries a machine-readable
// response code, e.g. NXDOMAIN or SERVFAIL. Failures without one
// (transport errors, timeouts) are returned as plain errors.
type LookupError struct {
	Query string
	Code  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s: %s", e.Query, e.Code)
}

// Result is the raw outcome of one successful lookup: the hostname as
// queried and every answer record the nameserver returned.
type Result struct {
	Query   string
	Answers []dns.RR
}

// Exchanger defines the interface for DNS message exchange.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, a string) (r *dns.Msg, rtt time.Duration, err error)
}

// Client issues lookups against individual nameservers.
type Client struct {
	Client   Exchanger
	Timeout  time.Duration
	Attempts int

	// cache holds answers for the duration of one run so duplicate
	// input hosts don't hit the network twice. Never persisted.
	cache *lru.Cache[string, []dns.RR]
}

// Opt is a function option for configuring the Client.
type Opt func(c *Client)

// New creates a Client with the given per-query timeout.
func New(timeout time.Duration, opts ...Opt) *Client {
	c := &Client{
		Client: &dns.Client{
			Timeout: timeout,
		},
		Timeout:  timeout,
		Attempts: 2,
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// WithAttempts returns an option to set the number of tries per query.
func WithAttempts(n int) Opt {
	return func(c *Client) {
		if n > 0 {
			c.Attempts = n
		}
	}
}

// WithCache returns an option to enable the per-run answer cache with
// the given capacity.
func WithCache(size int) Opt {
	return func(c *Client) {
		cache, err := lru.New[string, []dns.RR](size)
		if err != nil {
			return
		}
		c.cache = cache
	}
}

// Lookup resolves host against a single nameserver, querying A and
// AAAA concurrently. It succeeds if either address family yields
// answers. On failure the returned error is a *LookupError when the
// nameserver answered with a non-success or empty response, or a plain
// transport error otherwise.
func (c *Client) Lookup(ctx context.Context, host, nameserver string) (Result, error) {
	if strings.TrimSpace(host) == "" {
		return Result{}, ErrEmptyHostname
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	grp, ctx := errgroup.WithContext(ctx)

	var (
		mu      sync.Mutex
		answers []dns.RR
		errs    error
	)

	for _, qt := range [...]uint16{dns.TypeA, dns.TypeAAAA} {
		qt := qt
		grp.Go(func() error {
			ans, err := c.query(ctx, host, nameserver, qt)
			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = multierr.Append(errs, err) // collect but don't cancel peer
				return nil
			}
			answers = append(answers, ans...)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		errs = multierr.Append(errs, err)
	}

	if len(answers) == 0 {
		if errs != nil {
			return Result{}, errs
		}
		// Clean NODATA on both families: recordable, carries the
		// success response code.
		return Result{}, &LookupError{Query: host, Code: rcodeString(dns.RcodeSuccess)}
	}
	return Result{Query: host, Answers: answers}, nil
}

// query asks one nameserver for one record type, retrying transport
// failures up to c.Attempts times. A response with a non-success rcode
// is not retried; the nameserver gave a definitive answer.
func (c *Client) query(ctx context.Context, host, nameserver string, qtype uint16) ([]dns.RR, error) {
	key := cacheKey(host, nameserver, qtype)
	if c.cache != nil {
		if ans, ok := c.cache.Get(key); ok {
			return ans, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Fresh request each attempt: ExchangeContext mutates *dns.Msg
		req := &dns.Msg{}
		req.SetQuestion(dns.Fqdn(host), qtype)

		resp, _, err := c.Client.ExchangeContext(ctx, req, nameserver)
		if err != nil {
			lastErr = err
			continue
		}
		if resp == nil {
			lastErr = ErrEmptyMsg
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			return nil, &LookupError{Query: host, Code: rcodeString(resp.Rcode)}
		}

		if c.cache != nil {
			c.cache.Add(key, resp.Answer)
		}
		return resp.Answer, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("dns lookup failed for %q", host)
	}
	return nil, lastErr
}

func cacheKey(host, nameserver string, qtype uint16) string {
	return host + "|" + nameserver + "|" + dns.TypeToString[qtype]
}

func rcodeString(rcode int) string {
	if s, ok := dns.RcodeToString[rcode]; ok {
		return s
	}
	return fmt.Sprintf("RCODE%d", rcode)
}
