package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/internal/store"
	"github.com/dmitrymomot/seoscope/pkg/email"
	"github.com/dmitrymomot/seoscope/pkg/quota"
)

// paymentNotifier emails users whose renewal payment failed.
type paymentNotifier struct {
	users  *store.UserStore
	mailer *email.Mailer
	table  *quota.Table
}

func (n paymentNotifier) PaymentFailed(ctx context.Context, userID uuid.UUID, plan quota.PlanType) error {
	to, err := n.users.EmailByID(ctx, userID)
	if err != nil {
		return err
	}
	name := plan.String()
	if spec, ok := n.table.Plan(plan); ok && spec.Name != "" {
		name = spec.Name
	}
	return n.mailer.SendPaymentFailed(ctx, to, name)
}
