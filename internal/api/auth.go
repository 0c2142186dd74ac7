package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/seoscope/handler"
	"github.com/dmitrymomot/seoscope/pkg/auth"
	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/validator"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

const forgotPasswordMessage = "If an account exists for this email, a reset link is on its way."

func (a *API) register(ctx handler.Context, req auth.RegisterInput) handler.Response {
	user, err := a.Accounts.Register(ctx, req)
	if err != nil {
		return a.fail(ctx, err)
	}
	if _, err := a.Sessions.Login(ctx, ctx.ResponseWriter(), ctx.Request(), user.ID); err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"user": user}, handler.WithStatus(http.StatusCreated))
}

func (a *API) login(ctx handler.Context, req loginRequest) handler.Response {
	if err := validator.Struct(req); err != nil {
		return a.fail(ctx, err)
	}
	user, err := a.Accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			a.log.InfoContext(ctx, "login failed", logger.Component("auth"))
		}
		return a.fail(ctx, err)
	}
	if _, err := a.Sessions.Login(ctx, ctx.ResponseWriter(), ctx.Request(), user.ID); err != nil {
		return a.fail(ctx, err)
	}
	a.log.InfoContext(ctx, "user logged in", logger.UserID(user.ID), logger.Component("auth"))
	return handler.JSON(map[string]any{"user": user})
}

func (a *API) logout(ctx handler.Context, _ struct{}) handler.Response {
	if err := a.Sessions.Logout(ctx, ctx.ResponseWriter(), ctx.Request()); err != nil {
		a.log.WarnContext(ctx, "logout failed", logger.Error(err))
	}
	return handler.JSON(map[string]any{"loggedOut": true})
}

func (a *API) me(ctx handler.Context, _ struct{}) handler.Response {
	userID, ok := currentUser(ctx)
	if !ok {
		return handler.JSONError(handler.ErrUnauthorized)
	}
	user, err := a.Accounts.User(ctx, userID)
	if err != nil {
		return a.fail(ctx, err)
	}
	return handler.JSON(map[string]any{"user": user})
}

// forgotPassword answers the same way whether or not the email is known.
func (a *API) forgotPassword(ctx handler.Context, req forgotPasswordRequest) handler.Response {
	req.Email = strings.TrimSpace(req.Email)
	if err := validator.Struct(req); err != nil {
		return a.fail(ctx, err)
	}

	reset, err := a.Accounts.ForgotPassword(ctx, req.Email)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
	case err != nil:
		a.log.ErrorContext(ctx, "issue reset token", logger.Component("auth"), logger.Error(err))
	default:
		if err := a.Mailer.SendPasswordReset(ctx, reset.User.Email, reset.Token, a.Accounts.TokenTTL()); err != nil {
			a.log.ErrorContext(ctx, "send reset email", logger.UserID(reset.User.ID), logger.Error(err))
		}
	}
	return handler.JSON(map[string]any{"message": forgotPasswordMessage})
}

func (a *API) resetPassword(ctx handler.Context, req resetPasswordRequest) handler.Response {
	if err := validator.Struct(req); err != nil {
		return a.fail(ctx, err)
	}
	user, err := a.Accounts.ResetPassword(ctx, req.Token, req.Password)
	if err != nil {
		return a.fail(ctx, err)
	}
	if err := a.Sessions.Revoke(ctx, user.ID); err != nil {
		a.log.WarnContext(ctx, "revoke sessions after reset", logger.UserID(user.ID), logger.Error(err))
	}
	return handler.JSON(map[string]any{"reset": true})
}
