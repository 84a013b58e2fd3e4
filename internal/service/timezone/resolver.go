// Package timezone resolves the display time zone for rendered transcripts.
package timezone

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultZone is used whenever the lookup fails.
	DefaultZone = "UTC"
	// DefaultRetryAfter is how long a failed lookup is remembered before the
	// next attempt.
	DefaultRetryAfter = 5 * time.Minute

	lookupKey = "zone"
)

type resolution struct {
	zone    string
	loc     *time.Location
	ok      bool
	checked time.Time
}

// Resolver looks up the server's public-IP time zone. The first caller waits
// for one shared lookup; afterwards callers always get the cached answer. A
// failed lookup caches the fallback and is retried in the background once the
// retry window has passed.
type Resolver struct {
	url        string
	fallback   string
	retryAfter time.Duration
	client     *http.Client
	logger     *zap.Logger
	now        func() time.Time

	group   singleflight.Group
	mu      sync.RWMutex
	current *resolution
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithRetryAfter sets how long a failed lookup is remembered.
func WithRetryAfter(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.retryAfter = d
		}
	}
}

// NewResolver builds a resolver. A nil client gets timeout as its deadline.
func NewResolver(url, fallback string, timeout time.Duration, client *http.Client, logger *zap.Logger, opts ...Option) *Resolver {
	if fallback == "" {
		fallback = DefaultZone
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		url:        url,
		fallback:   fallback,
		retryAfter: DefaultRetryAfter,
		client:     client,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the IANA zone name and its location. The location is never
// nil; any failure yields the fallback.
func (r *Resolver) Resolve(ctx context.Context) (string, *time.Location) {
	r.mu.RLock()
	cur := r.current
	r.mu.RUnlock()

	if cur == nil {
		cur = r.wait(ctx)
	} else if !cur.ok && r.now().Sub(cur.checked) >= r.retryAfter {
		r.group.DoChan(lookupKey, func() (any, error) {
			return r.refresh(context.Background()), nil
		})
	}
	return cur.zone, cur.loc
}

// Zone returns the IANA zone name; any failure yields the fallback.
func (r *Resolver) Zone(ctx context.Context) string {
	zone, _ := r.Resolve(ctx)
	return zone
}

// Location returns the *time.Location for Zone, never nil.
func (r *Resolver) Location(ctx context.Context) *time.Location {
	_, loc := r.Resolve(ctx)
	return loc
}

// wait joins the in-flight lookup. A caller whose context ends first gets the
// fallback without caching it.
func (r *Resolver) wait(ctx context.Context) *resolution {
	ch := r.group.DoChan(lookupKey, func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		return res.Val.(*resolution)
	case <-ctx.Done():
		return r.fallbackResolution()
	}
}

func (r *Resolver) refresh(ctx context.Context) *resolution {
	res := r.fallbackResolution()
	zone, err := r.lookup(ctx)
	if err != nil {
		r.logger.Warn("[timezone] lookup failed, using fallback",
			zap.Error(err), zap.String("fallback", r.fallback), zap.Duration("retry_after", r.retryAfter))
	} else {
		loc, _ := time.LoadLocation(zone)
		res = &resolution{zone: zone, loc: loc, ok: true, checked: res.checked}
	}

	r.mu.Lock()
	r.current = res
	r.mu.Unlock()
	return res
}

func (r *Resolver) fallbackResolution() *resolution {
	loc, err := time.LoadLocation(r.fallback)
	if err != nil {
		loc = time.UTC
	}
	return &resolution{zone: r.fallback, loc: loc, checked: r.now()}
}

func (r *Resolver) lookup(ctx context.Context) (string, error) {
	if r.url == "" {
		return "", errNoEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode}
	}

	var payload struct {
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	zone := strings.TrimSpace(payload.Timezone)
	if zone == "" {
		return "", errNoZone
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return "", err
	}
	return zone, nil
}
