// Command server runs the seoscope web application and JSON API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/seoscope/db"
	"github.com/dmitrymomot/seoscope/internal/api"
	"github.com/dmitrymomot/seoscope/internal/projects"
	"github.com/dmitrymomot/seoscope/internal/seo"
	"github.com/dmitrymomot/seoscope/internal/store"
	"github.com/dmitrymomot/seoscope/internal/web"
	"github.com/dmitrymomot/seoscope/pkg/auth"
	"github.com/dmitrymomot/seoscope/pkg/billing"
	"github.com/dmitrymomot/seoscope/pkg/clientip"
	"github.com/dmitrymomot/seoscope/pkg/config"
	"github.com/dmitrymomot/seoscope/pkg/dataforseo"
	"github.com/dmitrymomot/seoscope/pkg/email"
	"github.com/dmitrymomot/seoscope/pkg/httpserver"
	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/metrics"
	"github.com/dmitrymomot/seoscope/pkg/pg"
	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/ratelimit"
	"github.com/dmitrymomot/seoscope/pkg/redis"
	"github.com/dmitrymomot/seoscope/pkg/requestid"
	"github.com/dmitrymomot/seoscope/pkg/sanity"
	"github.com/dmitrymomot/seoscope/pkg/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var app appConfig
	if err := config.Load(&app); err != nil {
		return err
	}
	log := logger.New(
		logger.WithEnvironment(app.Env, app.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor),
	)

	var (
		pgCfg      pg.Config
		redisCfg   redis.Config
		sessionCfg session.Config
		serverCfg  httpserver.Config
		seoCfg     dataforseo.Config
		stripeCfg  billing.Config
		mailCfg    email.Config
		sanityCfg  sanity.Config
		limitCfg   ratelimit.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&redisCfg) },
		func() error { return config.Load(&sessionCfg) },
		func() error { return config.Load(&serverCfg) },
		func() error { return config.Load(&seoCfg) },
		func() error { return config.Load(&stripeCfg) },
		func() error { return config.Load(&mailCfg) },
		func() error { return config.Load(&sanityCfg) },
		func() error { return config.Load(&limitCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, pgCfg, db.Migrations, db.MigrationsDir, log); err != nil {
		return err
	}

	checks := []httpserver.Check{{Name: "postgres", Probe: pg.Healthcheck(pool)}}
	sessionOpts := []session.Option{session.WithLogger(log)}
	if redisCfg.Enabled() {
		rdb, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks = append(checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(rdb)})
		sessionOpts = append(sessionOpts, session.WithStore(session.NewRedisStore(rdb, "session:")))
	} else {
		log.WarnContext(ctx, "REDIS_URL not set, sessions are kept in memory")
	}

	var sender email.Sender
	if mailCfg.PostmarkEnabled() {
		if sender, err = email.NewPostmarkSender(mailCfg); err != nil {
			return err
		}
	} else {
		sender = email.NewDevSender(mailCfg.DevOutputDir, log)
	}
	mailer := email.NewMailer(sender, app.BaseURL)

	m := metrics.New("seoscope")
	table := quota.DefaultTable()

	users := store.NewUserStore(pool)
	billingSvc := billing.NewService(
		store.NewSubscriptionStore(pool),
		billing.NewStripeProvider(stripeCfg, nil),
		stripeCfg,
		billing.WithLogger(log),
		billing.WithObserver(m),
		billing.WithNotifier(paymentNotifier{users: users, mailer: mailer, table: table}),
	)

	gate := quota.NewGate(table, store.NewUsageStore(pool), billingSvc,
		quota.WithLogger(log),
		quota.WithRecorder(m),
	)
	projectSvc := projects.NewService(store.NewProjectStore(pool), gate, projects.WithLogger(log))
	gate.RegisterCounter(quota.Projects, projectSvc.ProjectCounter())
	gate.RegisterCounter(quota.TrackedKeywords, projectSvc.KeywordCounter())

	if seoCfg.Password == "" {
		log.WarnContext(ctx, "DATAFORSEO_PASSWORD not set, SEO reports will fail")
	}
	provider := dataforseo.New(seoCfg, gate, dataforseo.WithLogger(log), dataforseo.WithObserver(m))
	seoSvc := seo.NewService(provider, gate, seo.WithLogger(log))

	accounts := auth.NewService(users, app.TokenSecret,
		auth.WithLogger(log),
		auth.WithAfterRegister(func(ctx context.Context, u *auth.User) error {
			if _, err := billingSvc.GetOrCreate(ctx, u.ID); err != nil {
				return err
			}
			return mailer.SendWelcome(ctx, u.Email)
		}),
	)

	webOpts := []web.Option{web.WithLogger(log)}
	if sanityCfg.Enabled() {
		webOpts = append(webOpts, web.WithBlog(sanity.New(sanityCfg, sanity.WithLogger(log))))
	}
	pages := web.New(table, webOpts...)

	deps := api.Deps{
		Accounts:        accounts,
		Mailer:          mailer,
		Sessions:        session.NewManager(sessionCfg, sessionOpts...),
		Limiter:         ratelimit.New(limitCfg),
		Usage:           gate,
		SEO:             seoSvc,
		Projects:        projectSvc,
		Pricing:         pages.PricingAPI(),
		PortalReturnURL: app.BaseURL + "/pricing",
	}
	if stripeCfg.SecretKey != "" {
		deps.Billing = billingSvc
	} else {
		log.WarnContext(ctx, "STRIPE_SECRET_KEY not set, billing endpoints are disabled")
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware, httpserver.RequestLogger(log))
	r.Get("/health/live", httpserver.Liveness())
	r.Get("/health/ready", httpserver.Readiness(log, 3*time.Second, checks...))
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Mount("/api", api.New(deps, api.WithLogger(log)).Routes())
	r.Mount("/", pages.Routes())

	return httpserver.New(serverCfg, httpserver.WithLogger(log)).Run(ctx, r)
}
