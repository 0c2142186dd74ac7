package email

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrymomot/seoscope/pkg/logger"
)

// DevSender writes each message as an HTML file and logs where it went.
type DevSender struct {
	dir string
	log *slog.Logger
	now func() time.Time
}

// NewDevSender creates a sender that writes into dir.
func NewDevSender(dir string, log *slog.Logger) *DevSender {
	if log == nil {
		log = logger.Discard()
	}
	return &DevSender{dir: dir, log: log, now: time.Now}
}

func (d *DevSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Join(ErrFailedToSend, err)
	}

	name := d.now().UTC().Format("20060102_150405.000") + "_" + slugify(firstNonEmpty(msg.Tag, msg.Subject)) + ".html"
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, []byte(msg.HTML), 0o644); err != nil {
		return errors.Join(ErrFailedToSend, err)
	}

	d.log.InfoContext(ctx, "email written",
		logger.Component("email"),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("path", path),
	)
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9_-]+`)

func slugify(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(strings.ReplaceAll(s, " ", "_")), "")
	if len(s) > 64 {
		s = s[:64]
	}
	if s == "" {
		return "email"
	}
	return s
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}
