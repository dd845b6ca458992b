package session

import (
	"time"

	"github.com/pkg/errors"
	"github.com/recoilme/pudge"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	Token     string
	UserID    string
	CompanyID string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions by token.
type Store interface {
	Put(s Session) error
	Get(token string) (Session, error)
	Delete(token string) error
	Keys() ([]string, error)
	Close() error
}

type PudgeStore struct {
	db *pudge.Db
}

func OpenPudgeStore(file string) (*PudgeStore, error) {
	cfg := &pudge.Config{
		SyncInterval: 1} // every second fsync
	db, err := pudge.Open(file, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open session store")
	}
	return &PudgeStore{db: db}, nil
}

func (p *PudgeStore) Put(s Session) error {
	return errors.Wrap(p.db.Set(s.Token, s), "store session")
}

func (p *PudgeStore) Get(token string) (Session, error) {
	var s Session
	if err := p.db.Get(token, &s); err != nil {
		if err == pudge.ErrKeyNotFound {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, errors.Wrap(err, "read session")
	}
	return s, nil
}

func (p *PudgeStore) Delete(token string) error {
	err := p.db.Delete(token)
	if err != nil && err != pudge.ErrKeyNotFound {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

func (p *PudgeStore) Keys() ([]string, error) {
	raw, err := p.db.Keys(nil, 0, 0, true)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, string(k))
	}
	return keys, nil
}

func (p *PudgeStore) Close() error {
	return p.db.Close()
}
