package datasource

import (
	"net/http"
	"sync"
)

// TokenStore supplies the bearer token for authenticated calls. ok is false when no
// user is signed in.
type TokenStore interface {
	Token() (token string, ok bool)
}

// StaticToken is a TokenStore holding one token, replaceable at runtime.
type StaticToken struct {
	mu    sync.RWMutex
	token string
}

func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

func (s *StaticToken) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *StaticToken) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// injectAuth sets the Authorization header when a token is available.
// A missing store or token leaves the request untouched.
func injectAuth(req *http.Request, tokens TokenStore) {
	if tokens == nil {
		return
	}
	token, ok := tokens.Token()
	if !ok || token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
