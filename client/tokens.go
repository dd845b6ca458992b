package client

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/recoilme/pudge"
)

// TokenKey is the key the session token is stored under.
const TokenKey = "authToken"

// TokenStore keeps the session token between calls.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) ClearToken() error {
	return m.SetToken("")
}

// PudgeTokenStore persists the token in a pudge file so it survives
// between command invocations.
type PudgeTokenStore struct {
	File string
}

func (p PudgeTokenStore) Token() (string, error) {
	var token []byte
	err := pudge.Get(p.File, TokenKey, &token)
	if err != nil {
		if errors.Is(err, pudge.ErrKeyNotFound) {
			return "", nil
		}
		return "", errors.Wrap(err, "read token")
	}
	return string(token), nil
}

func (p PudgeTokenStore) SetToken(token string) error {
	return errors.Wrap(pudge.Set(p.File, TokenKey, []byte(token)), "store token")
}

func (p PudgeTokenStore) ClearToken() error {
	err := pudge.Delete(p.File, TokenKey)
	if err != nil && !errors.Is(err, pudge.ErrKeyNotFound) {
		return errors.Wrap(err, "clear token")
	}
	return nil
}
