package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
	ErrSessionExpired     = errors.New("session expired")
	ErrEmailTaken         = errors.New("an account with this email already exists")
)

// UserRepository is the user storage the manager authenticates against.
type UserRepository interface {
	GetUserByEmail(email string) (database.User, error)
	GetUser(id string) (database.User, error)
	CreateCompanyUser(companyName string, user database.User) (database.Company, database.User, error)
}

// DatabaseUsers reads users from the database package.
type DatabaseUsers struct{}

func (DatabaseUsers) GetUserByEmail(email string) (database.User, error) {
	return database.GetUserByEmail(email)
}

func (DatabaseUsers) GetUser(id string) (database.User, error) {
	return database.GetUser(id)
}

func (DatabaseUsers) CreateCompanyUser(companyName string, user database.User) (database.Company, database.User, error) {
	return database.CreateCompanyUser(companyName, user)
}

// Manager owns session validity. Handlers ask it for the current user and
// never read the store directly.
type Manager struct {
	store Store
	users UserRepository
	ttl   time.Duration

	limitMu     sync.Mutex
	limiters    map[string]*loginLimiter
	limitEvery  rate.Limit
	limitBurst  int
	limitWindow time.Duration

	now func() time.Time
}

func NewManager(store Store, users UserRepository, cfg config.SessionConfig) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	m := &Manager{
		store:    store,
		users:    users,
		ttl:      cfg.TTL,
		limiters: make(map[string]*loginLimiter),
		now:      time.Now,
	}
	if cfg.LoginLimiterCalls > 0 && cfg.LoginLimiterSeconds > 0 {
		m.limitEvery = rate.Every(time.Duration(cfg.LoginLimiterSeconds) * time.Second / time.Duration(cfg.LoginLimiterCalls))
		m.limitBurst = cfg.LoginLimiterCalls
		m.limitWindow = time.Duration(cfg.LoginLimiterSeconds) * time.Second
	} else {
		m.limitEvery = rate.Inf
	}
	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

type loginLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (m *Manager) allowLogin(email string) bool {
	if m.limitEvery == rate.Inf {
		return true
	}
	now := m.now()
	m.limitMu.Lock()
	defer m.limitMu.Unlock()
	l, ok := m.limiters[email]
	if !ok {
		l = &loginLimiter{limiter: rate.NewLimiter(m.limitEvery, m.limitBurst)}
		m.limiters[email] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

func (m *Manager) newSession(user database.User) (Session, error) {
	now := m.now()
	s := Session{
		Token:     strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Put(s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Login validates the credentials and opens a new session.
func (m *Manager) Login(ctx context.Context, input LoginInput) (Session, database.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := Validate(input); err != nil {
		return Session{}, database.User{}, err
	}
	if !m.allowLogin(input.Email) {
		logger.Log.Warnln("login throttled for ", input.Email)
		return Session{}, database.User{}, ErrTooManyAttempts
	}
	if err := ctx.Err(); err != nil {
		return Session{}, database.User{}, err
	}
	user, err := m.users.GetUserByEmail(input.Email)
	if err != nil {
		if errors.Is(err, database.ErrNoResult) {
			return Session{}, database.User{}, ErrInvalidCredentials
		}
		return Session{}, database.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return Session{}, database.User{}, ErrInvalidCredentials
	}
	s, err := m.newSession(user)
	if err != nil {
		return Session{}, database.User{}, err
	}
	logger.Log.Infoln("user logged in: ", user.Email)
	return s, user, nil
}

// Register creates the company and its first user and opens a session for it.
func (m *Manager) Register(ctx context.Context, input RegisterInput) (Session, database.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := Validate(input); err != nil {
		return Session{}, database.User{}, err
	}
	if err := ctx.Err(); err != nil {
		return Session{}, database.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, database.User{}, errors.Wrap(err, "hash password")
	}
	_, user, err := m.users.CreateCompanyUser(input.CompanyName, database.User{
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return Session{}, database.User{}, ErrEmailTaken
		}
		return Session{}, database.User{}, err
	}
	s, err := m.newSession(user)
	if err != nil {
		return Session{}, database.User{}, err
	}
	logger.Log.Infoln("company registered: ", input.CompanyName)
	return s, user, nil
}

// Logout ends the session. Unknown tokens are not an error.
func (m *Manager) Logout(token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(token)
}

// CurrentUser resolves the token to its session and user. Expired sessions are
// removed and reported as ErrSessionExpired.
func (m *Manager) CurrentUser(token string) (Session, database.User, error) {
	if token == "" {
		return Session{}, database.User{}, ErrSessionNotFound
	}
	s, err := m.store.Get(token)
	if err != nil {
		return Session{}, database.User{}, err
	}
	if s.Expired(m.now()) {
		m.discard(token)
		return Session{}, database.User{}, ErrSessionExpired
	}
	user, err := m.users.GetUser(s.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNoResult) {
			m.discard(token)
			return Session{}, database.User{}, ErrSessionNotFound
		}
		return Session{}, database.User{}, err
	}
	return s, user, nil
}

// discard removes a session that can no longer be used. A failed delete is
// left to the purge job.
func (m *Manager) discard(token string) {
	if err := m.store.Delete(token); err != nil {
		logger.Log.Warnln("Session not deleted: ", err)
	}
}

// PurgeExpired deletes every session expired at now and returns how many were
// removed.
func (m *Manager) PurgeExpired(now time.Time) (int, error) {
	keys, err := m.store.Keys()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		s, err := m.store.Get(key)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return removed, err
		}
		if s.Expired(now) {
			if err := m.store.Delete(key); err != nil {
				return removed, err
			}
			removed++
		}
	}
	m.limitMu.Lock()
	for email, l := range m.limiters {
		if now.Sub(l.lastSeen) > m.limitWindow {
			delete(m.limiters, email)
		}
	}
	m.limitMu.Unlock()
	return removed, nil
}
