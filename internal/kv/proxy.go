package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAllBackendsDown is returned when every endpoint in a Proxy's list
// fails during a single logical call, matching EtcdProxy's behavior of
// re-raising the last client's exception once every client has been
// tried (spec §4.3, §7 "AllBackendsDown").
var ErrAllBackendsDown = errors.New("kv: all backends down")

// Proxy fans a single KV call out across a list of backend endpoints,
// advancing to the next endpoint on a transport-level failure and
// remembering the last-good index so subsequent calls start there
// (EtcdProxy.__proxy_fn_wrap).
type Proxy struct {
	mu      sync.Mutex
	members []KV
	current int
	log     *slog.Logger
}

// NewProxy builds a Proxy over members in the given order. The first
// member is tried first.
func NewProxy(members []KV, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Proxy{members: members, log: logger}
}

// call runs fn against the current member; on failure it advances to
// the next member (wrapping around) and retries, until either fn
// succeeds, fn returns a business-logic error (ErrNotFound /
// ErrAlreadyExists, which is not a transport failure), or every member
// has been tried once.
func (p *Proxy) call(ctx context.Context, fn func(KV) error) error {
	p.mu.Lock()
	start := p.current
	p.mu.Unlock()

	var lastErr error
	for i := 0; i < len(p.members); i++ {
		idx := (start + i) % len(p.members)
		member := p.members[idx]

		err := fn(member)
		if err == nil {
			p.mu.Lock()
			p.current = idx
			p.mu.Unlock()
			return nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
			// Business-logic result, not a transport failure: the
			// member answered authoritatively, so don't fail over.
			p.mu.Lock()
			p.current = idx
			p.mu.Unlock()
			return err
		}
		p.log.Warn("kv backend call failed, advancing to next endpoint",
			"index", idx, "error", err)
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrAllBackendsDown, lastErr)
}

func (p *Proxy) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := p.call(ctx, func(k KV) error {
		v, err := k.Get(ctx, key)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (p *Proxy) Put(ctx context.Context, key string, value []byte) error {
	return p.call(ctx, func(k KV) error { return k.Put(ctx, key, value) })
}

func (p *Proxy) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	return p.call(ctx, func(k KV) error { return k.PutIfAbsent(ctx, key, value) })
}

func (p *Proxy) Delete(ctx context.Context, key string) error {
	return p.call(ctx, func(k KV) error { return k.Delete(ctx, key) })
}

func (p *Proxy) DeletePrefix(ctx context.Context, prefix string) error {
	return p.call(ctx, func(k KV) error { return k.DeletePrefix(ctx, prefix) })
}

func (p *Proxy) ListPrefix(ctx context.Context, prefix string) ([]Pair, error) {
	var out []Pair
	err := p.call(ctx, func(k KV) error {
		v, err := k.ListPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Close closes every member, collecting (not failing over on) errors.
func (p *Proxy) Close() error {
	var errs []error
	for _, m := range p.members {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
