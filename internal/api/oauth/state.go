package oauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// stateTTL is how long a login attempt may sit on the consent screen before
// the callback is rejected.
const stateTTL = 10 * time.Minute

// StateStore issues single-use CSRF state nonces for the authorization
// redirect and validates them on the callback.
type StateStore struct {
	states *cache.Cache
}

func NewStateStore() *StateStore {
	return &StateStore{states: cache.New(stateTTL, 2*stateTTL)}
}

// Issue mints a fresh nonce and remembers it until the TTL lapses.
func (s *StateStore) Issue() string {
	state := uuid.NewString()
	s.states.SetDefault(state, struct{}{})
	return state
}

// Consume reports whether state was previously issued and still live. A
// successful consume burns the nonce, so replaying a callback fails.
func (s *StateStore) Consume(state string) bool {
	if _, ok := s.states.Get(state); !ok {
		return false
	}
	s.states.Delete(state)
	return true
}
