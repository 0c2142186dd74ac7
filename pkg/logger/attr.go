package logger

import (
	"log/slog"
	"time"
)

// Error returns the "error" attribute, or an empty attribute for nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Plan is the subscription plan the record relates to.
func Plan(plan string) slog.Attr {
	return slog.String("plan", plan)
}

// Category is the usage category the record relates to.
func Category(category string) slog.Attr {
	return slog.String("category", category)
}

// Endpoint is an upstream provider path.
func Endpoint(path string) slog.Attr {
	return slog.String("endpoint", path)
}
