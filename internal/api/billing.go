package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/seoscope/handler"
	"github.com/dmitrymomot/seoscope/pkg/billing"
	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/validator"
)

// maxWebhookBody caps Stripe event payloads.
const maxWebhookBody = 64 << 10

type planRequest struct {
	Plan quota.PlanType `json:"plan" validate:"required,oneof=pro agency"`
}

func (a *API) subscription(ctx handler.Context, _ struct{}) handler.Response {
	userID, _ := currentUser(ctx)
	sub, err := a.Billing.GetOrCreate(ctx, userID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(sub)
}

func (a *API) checkout(ctx handler.Context, req planRequest) handler.Response {
	if err := validator.Struct(req); err != nil {
		return a.fail(ctx, err)
	}
	userID, _ := currentUser(ctx)
	user, err := a.Accounts.User(ctx, userID)
	if err != nil {
		return a.fail(ctx, err)
	}
	url, err := a.Billing.Checkout(ctx, billing.Customer{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}, req.Plan)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"url": url})
}

func (a *API) cancel(ctx handler.Context, _ struct{}) handler.Response {
	userID, _ := currentUser(ctx)
	sub, err := a.Billing.Cancel(ctx, userID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(sub)
}

func (a *API) changePlan(ctx handler.Context, req planRequest) handler.Response {
	if err := validator.Struct(req); err != nil {
		return a.fail(ctx, err)
	}
	userID, _ := currentUser(ctx)
	sub, err := a.Billing.ChangePlan(ctx, userID, req.Plan)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(sub)
}

func (a *API) portal(ctx handler.Context, _ struct{}) handler.Response {
	userID, _ := currentUser(ctx)
	url, err := a.Billing.PortalLink(ctx, userID, a.PortalReturnURL)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"url": url})
}

// stripeWebhook verifies and applies Stripe events. Events that match no user
// are acknowledged. Other failures answer 500.
func (a *API) stripeWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if len(payload) > maxWebhookBody {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}

		err = a.Billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
		switch {
		case err == nil, errors.Is(err, billing.ErrUnknownSubscriber):
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, billing.ErrInvalidWebhook):
			a.log.WarnContext(r.Context(), "rejected stripe webhook", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		default:
			a.log.ErrorContext(r.Context(), "stripe webhook failed",
				slog.Int("payload_bytes", len(payload)), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}
