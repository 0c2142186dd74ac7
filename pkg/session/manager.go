package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/logger"
)

// Manager issues, resolves and revokes sessions over a cookie.
type Manager struct {
	store  Store
	config Config
	log    *slog.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore overrides the default in-memory store.
func WithStore(s Store) Option {
	return func(m *Manager) {
		if s != nil {
			m.store = s
		}
	}
}

// WithLogger sets the logger used for background store failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager with cfg. Zero durations fall back to defaults.
func NewManager(cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = def.MaxLifetime
	}

	m := &Manager{
		config: cfg,
		log:    logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	return m
}

// Login starts a session for userID, replacing any session on the request.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*Session, error) {
	if c, err := r.Cookie(m.config.CookieName); err == nil && c.Value != "" {
		_ = m.store.Delete(ctx, c.Value)
	}

	tok, err := newToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{Token: tok, UserID: userID, CreatedAt: now}
	s.extend(now, m.config.IdleTimeout, m.config.MaxLifetime)

	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	m.setCookie(w, s)
	return s, nil
}

// Current resolves the session referenced by the request cookie.
func (m *Manager) Current(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.config.CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrSessionNotFound
	}

	s, err := m.store.Get(ctx, c.Value)
	if err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Logout deletes the request's session and clears the cookie.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	if c, cerr := r.Cookie(m.config.CookieName); cerr == nil && c.Value != "" {
		err = m.store.Delete(ctx, c.Value)
	}
	m.clearCookie(w)
	return err
}

// Revoke deletes every session of userID.
func (m *Manager) Revoke(ctx context.Context, userID uuid.UUID) error {
	return m.store.DeleteByUser(ctx, userID)
}

// Middleware attaches the current session to the request context when one
// exists and slides its idle expiry at most once per TouchInterval.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Current(r.Context(), r)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				m.log.ErrorContext(r.Context(), "session lookup failed", logger.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		if now := m.now(); now.Sub(s.LastActivityAt) >= m.config.TouchInterval {
			s.extend(now, m.config.IdleTimeout, m.config.MaxLifetime)
			if err := m.store.Save(r.Context(), s); err != nil {
				m.log.WarnContext(r.Context(), "session touch failed", logger.Error(err))
			} else {
				m.setCookie(w, s)
			}
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequireAuth rejects requests without a session by calling unauthorized.
func RequireAuth(unauthorized http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				unauthorized.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Manager) setCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(s.ExpiresAt.Sub(m.now()).Seconds()),
		HttpOnly: true,
		Secure:   m.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
