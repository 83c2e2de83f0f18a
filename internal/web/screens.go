package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/RealZimboGuy/reviewflow/internal/listview"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
)

// pendingNavigator remembers the last navigation a screen asked for until the
// handler that triggered it turns it into a redirect.
type pendingNavigator struct {
	mu   sync.Mutex
	path string
}

func (n *pendingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

func (n *pendingNavigator) take() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.path
	n.path = ""
	return p
}

type screen struct {
	ctrl     *listview.Controller
	nav      *pendingNavigator
	lastSeen time.Time
}

// ScreenStore keeps one mounted list screen per login session. Screens idle
// for longer than the TTL are removed by Sweep.
type ScreenStore struct {
	mu      sync.Mutex
	clock   core.Clock
	ttl     time.Duration
	screens map[string]*screen
	expired func(key string)
}

func NewScreenStore(clock core.Clock, ttl time.Duration) *ScreenStore {
	return &ScreenStore{clock: clock, ttl: ttl, screens: make(map[string]*screen)}
}

// OnExpire registers fn to run, outside the store lock, for every screen
// removed because it idled past the TTL.
func (s *ScreenStore) OnExpire(fn func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = fn
}

func (s *ScreenStore) notifyExpired(fn func(string), keys ...string) {
	if fn == nil {
		return
	}
	for _, key := range keys {
		fn(key)
	}
}

// Put replaces whatever screen the session had mounted before.
func (s *ScreenStore) Put(key string, ctrl *listview.Controller, nav *pendingNavigator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screens[key] = &screen{ctrl: ctrl, nav: nav, lastSeen: s.clock.Now()}
}

func (s *ScreenStore) Get(key string) (*screen, bool) {
	s.mu.Lock()
	sc, ok := s.screens[key]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if s.expiredLocked(sc, s.clock.Now()) {
		delete(s.screens, key)
		fn := s.expired
		s.mu.Unlock()
		s.notifyExpired(fn, key)
		return nil, false
	}
	sc.lastSeen = s.clock.Now()
	s.mu.Unlock()
	return sc, true
}

func (s *ScreenStore) Drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.screens, key)
}

func (s *ScreenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.screens)
}

func (s *ScreenStore) expiredLocked(sc *screen, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sc.lastSeen) > s.ttl
}

// Sweep removes expired screens and returns how many were dropped.
func (s *ScreenStore) Sweep() int {
	s.mu.Lock()
	now := s.clock.Now()
	var removed []string
	for key, sc := range s.screens {
		if s.expiredLocked(sc, now) {
			delete(s.screens, key)
			removed = append(removed, key)
		}
	}
	fn := s.expired
	s.mu.Unlock()
	s.notifyExpired(fn, removed...)
	return len(removed)
}

// Run sweeps on every interval until ctx is done.
func (s *ScreenStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("Expired list screens removed", "count", n)
			}
		}
	}
}
