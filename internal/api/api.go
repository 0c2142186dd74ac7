// Package api exposes the JSON API under /api.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/handler"
	"github.com/dmitrymomot/seoscope/internal/projects"
	"github.com/dmitrymomot/seoscope/internal/seo"
	"github.com/dmitrymomot/seoscope/pkg/auth"
	"github.com/dmitrymomot/seoscope/pkg/billing"
	"github.com/dmitrymomot/seoscope/pkg/clientip"
	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/ratelimit"
	"github.com/dmitrymomot/seoscope/pkg/session"
)

// Accounts is the subset of *auth.Service the API uses.
type Accounts interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.User, error)
	Authenticate(ctx context.Context, email, password string) (*auth.User, error)
	User(ctx context.Context, id uuid.UUID) (*auth.User, error)
	ForgotPassword(ctx context.Context, email string) (*auth.ResetRequest, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*auth.User, error)
	TokenTTL() time.Duration
}

// ResetMailer delivers password reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, token string, ttl time.Duration) error
}

// UsageReporter builds the usage snapshot. *quota.Gate implements it.
type UsageReporter interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (quota.Snapshot, error)
}

// Billing is the subset of *billing.Service the API uses.
type Billing interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error)
	Checkout(ctx context.Context, c billing.Customer, plan quota.PlanType) (string, error)
	Cancel(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error)
	ChangePlan(ctx context.Context, userID uuid.UUID, plan quota.PlanType) (*billing.Subscription, error)
	PortalLink(ctx context.Context, userID uuid.UUID, returnURL string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Deps are the services behind the API.
type Deps struct {
	Accounts Accounts
	Mailer   ResetMailer
	Sessions *session.Manager
	Limiter  *ratelimit.Limiter
	Usage    UsageReporter
	SEO      *seo.Service
	Projects *projects.Service
	Billing  Billing
	Pricing  http.Handler
	// PortalReturnURL is where the billing portal sends users back.
	PortalReturnURL string
}

type API struct {
	Deps
	log *slog.Logger
}

type Option func(*API)

func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.log = l }
}

func New(deps Deps, opts ...Option) *API {
	a := &API{Deps: deps, log: logger.Discard()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Routes builds the /api router. Mount it under /api.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	if a.Billing != nil {
		r.Post("/webhooks/stripe", a.stripeWebhook())
	}
	if a.Pricing != nil {
		r.Method(http.MethodGet, "/pricing", a.Pricing)
	}

	r.Group(func(r chi.Router) {
		r.Use(a.Sessions.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if a.Limiter != nil {
					r.Use(ratelimit.Middleware(a.Limiter, authRateKey, http.HandlerFunc(tooManyRequests)))
				}
				r.Post("/register", wrap(a, a.register))
				r.Post("/login", wrap(a, a.login))
				r.Post("/forgot-password", wrap(a, a.forgotPassword))
				r.Post("/reset-password", wrap(a, a.resetPassword))
			})
			r.Post("/logout", wrap(a, a.logout))
			r.With(session.RequireAuth(http.HandlerFunc(unauthorized))).Get("/me", wrap(a, a.me))
		})

		r.Group(func(r chi.Router) {
			r.Use(session.RequireAuth(http.HandlerFunc(unauthorized)))

			r.Get("/usage", wrap(a, a.usage))

			r.Route("/seo", func(r chi.Router) {
				r.Post("/keywords/ideas", wrap(a, a.keywordIdeas))
				r.Post("/keywords/export", wrap(a, a.exportKeywords))
				r.Get("/backlinks", wrap(a, a.backlinks))
				r.Post("/audit", wrap(a, a.auditPages))
				r.Get("/domain", wrap(a, a.domainOverview))
				r.Post("/ai-visibility", wrap(a, a.aiVisibility))
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", wrap(a, a.listProjects))
				r.Post("/", wrap(a, a.importProject))
				r.Route("/{projectID}", func(r chi.Router) {
					r.Get("/", wrap(a, a.getProject))
					r.Delete("/", wrap(a, a.deleteProject))
					r.Get("/keywords", wrap(a, a.listKeywords))
					r.Post("/keywords", wrap(a, a.trackKeyword))
					r.Delete("/keywords/{keywordID}", wrap(a, a.untrackKeyword))
				})
			})

			if a.Billing != nil {
				r.Route("/billing", func(r chi.Router) {
					r.Get("/subscription", wrap(a, a.subscription))
					r.Post("/checkout", wrap(a, a.checkout))
					r.Post("/cancel", wrap(a, a.cancel))
					r.Post("/change-plan", wrap(a, a.changePlan))
					r.Post("/portal", wrap(a, a.portal))
				})
			}
		})
	})

	return r
}

// wrap binds path, query and JSON body in that order and reports binding
// errors through the logging error handler.
func wrap[R any](a *API, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](
			bindPath,
			bindQuery,
			bindJSON,
		),
		handler.WithErrorHandler[handler.Context, R](handler.NewErrorHandler[handler.Context](a.log)),
	)
}

// unauthorized is the plain 401 answer for requests without a session.
func unauthorized(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	_ = handler.JSONError(handler.ErrTooManyRequests.WithMessage("Too many attempts. Please wait a moment and try again.")).Render(w, r)
}

func authRateKey(r *http.Request) string {
	ip := clientip.GetIP(r)
	if ip == "" {
		return ""
	}
	return "auth:" + ip
}

// currentUser returns the session's user ID. Routes behind RequireAuth always
// have one.
func currentUser(ctx handler.Context) (uuid.UUID, bool) {
	return session.UserIDFromContext(ctx)
}

// fail maps err to an HTTP error response and logs server-side failures.
func (a *API) fail(ctx handler.Context, err error) handler.Response {
	mapped := toHTTPError(err)
	status, _ := handler.ErrorToDetail(mapped)
	if status >= http.StatusInternalServerError {
		userID, _ := currentUser(ctx)
		a.log.ErrorContext(ctx, "api request failed",
			slog.String("path", ctx.Request().URL.Path),
			slog.Int("status", status),
			logger.UserID(userID),
			logger.Error(err),
		)
	}
	return handler.JSONError(mapped)
}
