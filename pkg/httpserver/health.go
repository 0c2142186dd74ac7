package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/seoscope/pkg/logger"
)

// Check is a named readiness dependency.
type Check struct {
	Name  string
	Probe func(context.Context) error
}

// Liveness always answers 200.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// Readiness runs every check concurrently under timeout and answers 503 if
// any of them fails.
func Readiness(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var (
			mu     sync.Mutex
			status = make(map[string]string, len(checks))
			ok     = true
		)
		var g errgroup.Group
		for _, c := range checks {
			g.Go(func() error {
				err := c.Probe(ctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					ok = false
					status[c.Name] = "down"
					log.ErrorContext(ctx, "readiness check failed", slog.String("check", c.Name), logger.Error(err))
					return nil
				}
				status[c.Name] = "up"
				return nil
			})
		}
		_ = g.Wait()

		code := http.StatusOK
		state := "ready"
		if !ok {
			code = http.StatusServiceUnavailable
			state = "not_ready"
		}
		writeJSON(w, code, map[string]any{"status": state, "checks": status})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
