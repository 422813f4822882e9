package grpc

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc/peer"
)

// maxTrackedPeers bounds the limiter table.
const maxTrackedPeers = 10000

type peerBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// peerLimiter keeps one token bucket per remote host. When the table is
// full, buckets that have refilled are dropped first, since a fresh bucket
// behaves the same; failing that, the peer seen least recently goes.
type peerLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	max   int
	now   func() time.Time
	peers map[string]*peerBucket
}

// newPeerLimiter returns nil when perSecond is not positive, which disables
// limiting.
func newPeerLimiter(perSecond float64, burst int) *peerLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &peerLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		max:   maxTrackedPeers,
		now:   time.Now,
		peers: map[string]*peerBucket{},
	}
}

func (l *peerLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.peers[key]
	if !ok {
		if len(l.peers) >= l.max {
			l.evict(now)
		}
		b = &peerBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.peers[key] = b
	}
	b.seen = now

	return b.lim.AllowN(now, 1)
}

// evict frees at least one slot. Called with mu held.
func (l *peerLimiter) evict(now time.Time) {
	for key, b := range l.peers {
		if b.lim.TokensAt(now) >= float64(l.burst) {
			delete(l.peers, key)
		}
	}
	if len(l.peers) < l.max {
		return
	}

	var oldest string
	var oldestSeen time.Time
	for key, b := range l.peers {
		if oldest == "" || b.seen.Before(oldestSeen) {
			oldest, oldestSeen = key, b.seen
		}
	}
	delete(l.peers, oldest)
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
