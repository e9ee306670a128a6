// Package registry resolves image references and cache endpoints against container registries.
package registry

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var _ ports.ImageResolver = (*Resolver)(nil)

const (
	maxAttempts  = 3
	checkWorkers = 4
)

type headFunc func(ref name.Reference, options ...remote.Option) (*v1.Descriptor, error)

// Resolver implements ports.ImageResolver with manifest HEAD requests.
type Resolver struct {
	logger  ports.Logger
	options []remote.Option
	backoff time.Duration
	head    headFunc

	group singleflight.Group
	mu    sync.Mutex
	pins  map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRemoteOptions appends options to every registry request.
func WithRemoteOptions(opts ...remote.Option) Option {
	return func(r *Resolver) {
		r.options = append(r.options, opts...)
	}
}

// WithBackoff sets the delay before the second attempt. It doubles for each further attempt.
func WithBackoff(d time.Duration) Option {
	return func(r *Resolver) {
		r.backoff = d
	}
}

// NewResolver creates a new Resolver authenticating with the default keychain.
func NewResolver(logger ports.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		logger:  logger,
		options: []remote.Option{remote.WithAuthFromKeychain(authn.DefaultKeychain)},
		backoff: 250 * time.Millisecond,
		head:    remote.Head,
		pins:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pin returns ref with the digest of its current manifest appended.
// References that already carry a digest are returned unchanged.
func (r *Resolver) Pin(ctx context.Context, ref string) (string, error) {
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrImageResolveFailed, err.Error()), "ref", ref)
	}
	if _, ok := parsed.(name.Digest); ok {
		return ref, nil
	}

	r.mu.Lock()
	pinned, ok := r.pins[ref]
	r.mu.Unlock()
	if ok {
		return pinned, nil
	}

	v, err, _ := r.group.Do(ref, func() (any, error) {
		desc, err := r.headWithRetry(ctx, parsed)
		if err != nil {
			return "", err
		}
		pinned := ref + "@" + desc.Digest.String()

		r.mu.Lock()
		r.pins[ref] = pinned
		r.mu.Unlock()
		return pinned, nil
	})
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrImageResolveFailed, err.Error()), "ref", ref)
	}
	return v.(string), nil //nolint:forcetypeassert // singleflight returns what the closure returned
}

// Reachable checks every cache import and returns those whose manifest exists, in input order.
// Entries that do not point at a registry are kept without probing.
func (r *Resolver) Reachable(ctx context.Context, specs []string) []string {
	ok := make([]bool, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checkWorkers)
	for i, spec := range specs {
		g.Go(func() error {
			ref, isRegistry := RegistryRef(spec)
			if !isRegistry {
				ok[i] = true
				return nil
			}
			parsed, err := name.ParseReference(ref)
			if err != nil {
				r.logger.Warn("dropping cache import", "spec", spec, "reason", err.Error())
				return nil
			}
			if _, err := r.headWithRetry(gctx, parsed); err != nil {
				r.logger.Warn("dropping unreachable cache import, building cold", "spec", spec, "reason", err.Error())
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	reachable := make([]string, 0, len(specs))
	for i, spec := range specs {
		if ok[i] {
			reachable = append(reachable, spec)
		}
	}
	return reachable
}

func (r *Resolver) headWithRetry(ctx context.Context, ref name.Reference) (*v1.Descriptor, error) {
	opts := append([]remote.Option{remote.WithContext(ctx)}, r.options...)

	delay := r.backoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		desc, err := r.head(ref, opts...)
		if err == nil {
			return desc, nil
		}
		lastErr = err
		if !retryable(err) || attempt == maxAttempts {
			break
		}

		r.logger.Debug("registry request failed, retrying", "ref", ref.String(), "attempt", attempt, "error", err.Error())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}

// retryable reports whether a failed request may succeed when repeated.
// Client errors such as a missing manifest or denied access are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var terr *transport.Error
	if errors.As(err, &terr) {
		return terr.StatusCode >= http.StatusInternalServerError || terr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// RegistryRef extracts the image reference from a cache endpoint. A bare reference is
// a registry endpoint; otherwise the spec must be `type=registry,ref=...`.
func RegistryRef(spec string) (string, bool) {
	if !strings.Contains(spec, "=") {
		return spec, true
	}
	var typ, ref string
	for field := range strings.SplitSeq(spec, ",") {
		key, value, _ := strings.Cut(field, "=")
		switch key {
		case "type":
			typ = value
		case "ref":
			ref = value
		}
	}
	if typ != "registry" || ref == "" {
		return "", false
	}
	return ref, true
}
