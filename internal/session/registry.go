// Package session holds the per-sender conversation state: a stable
// correlation id for the NLU backend and a lazily resolved user profile.
// Entries are only ever added for the life of the process, never evicted.
package session

import (
	"context"
	"sync"

	"github.com/doinghun/merlabot-public/internal/logger"
	"github.com/doinghun/merlabot-public/internal/model"
	"github.com/doinghun/merlabot-public/internal/util"
	"go.uber.org/zap"
)

// ProfileFetcher resolves a sender's user profile from the platform.
type ProfileFetcher interface {
	Fetch(ctx context.Context, senderID string) (*model.UserProfile, error)
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]string
	users    map[string]model.UserProfile
	profiles ProfileFetcher
}

func NewRegistry(profiles ProfileFetcher) *Registry {
	return &Registry{
		sessions: make(map[string]string),
		users:    make(map[string]model.UserProfile),
		profiles: profiles,
	}
}

// EnsureSession returns the sender's correlation id, creating one on first
// contact. Idempotent: the id is stable for the process lifetime.
func (r *Registry) EnsureSession(senderID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.sessions[senderID]; ok {
		return id
	}
	id := util.New()
	r.sessions[senderID] = id
	return id
}

// EnsureUser kicks off a profile fetch for senders without a cached profile
// and caches the result when it arrives. Failures leave the cache empty so a
// later event retries. Two calls racing on a cold cache both fetch; the
// second write wins. Callers never wait on the fetch.
func (r *Registry) EnsureUser(ctx context.Context, senderID string) {
	r.mu.Lock()
	_, cached := r.users[senderID]
	r.mu.Unlock()
	if cached {
		return
	}

	go func() {
		p, err := r.profiles.Fetch(ctx, senderID)
		if err != nil || p == nil {
			logger.L().Warn("profile fetch failed",
				zap.String("sender_id", senderID), zap.Error(err))
			return
		}
		r.mu.Lock()
		r.users[senderID] = *p
		r.mu.Unlock()
	}()
}

// User returns the cached profile for senderID, if resolved yet.
func (r *Registry) User(senderID string) (model.UserProfile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.users[senderID]
	return p, ok
}

// Sessions returns the number of known senders.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
