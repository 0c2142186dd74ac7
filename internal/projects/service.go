// Package projects manages monitored websites and their tracked keywords.
package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/validator"
)

const (
	defaultLocationCode = 2840
	defaultLanguageCode = "en"
)

// CapacityChecker reports whether a user may hold one more item of a
// capacity category. *quota.Gate implements it.
type CapacityChecker interface {
	CheckCapacity(ctx context.Context, userID uuid.UUID, category quota.Category) (quota.Decision, error)
}

type Service struct {
	storage Storage
	quota   CapacityChecker
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(storage Storage, checker CapacityChecker, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		quota:   checker,
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import adds a website to the user's projects. The plan's project capacity is
// checked up front and enforced again by the storage insert.
func (s *Service) Import(ctx context.Context, userID uuid.UUID, in ImportInput) (*Project, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	normalized, err := NormalizeURL(in.URL)
	if err != nil {
		errs := validator.Errors{}
		errs.Add("url", "must be a valid website URL")
		return nil, errors.Join(err, errs)
	}

	d, err := s.quota.CheckCapacity(ctx, userID, quota.Projects)
	if err != nil {
		return nil, err
	}

	p := &Project{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      in.Name,
		URL:       normalized,
		CreatedAt: s.now().UTC(),
	}
	if p.Name == "" {
		p.Name = hostOf(normalized)
	}
	if err := s.storage.CreateProject(ctx, p, d.Limit); err != nil {
		switch {
		case errors.Is(err, ErrCapacityReached):
			return nil, capacityError(d)
		case errors.Is(err, ErrProjectExists):
			return nil, err
		}
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.log.InfoContext(ctx, "project imported",
		logger.UserID(userID),
		slog.String("project_id", p.ID.String()),
		slog.String("url", p.URL),
	)
	return p, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Project, error) {
	list, err := s.storage.ListProjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if list == nil {
		list = []Project{}
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, userID, projectID uuid.UUID) (*Project, error) {
	return s.storage.GetProject(ctx, userID, projectID)
}

// Delete removes the project together with its tracked keywords.
func (s *Service) Delete(ctx context.Context, userID, projectID uuid.UUID) error {
	if err := s.storage.DeleteProject(ctx, userID, projectID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "project deleted",
		logger.UserID(userID),
		slog.String("project_id", projectID.String()),
	)
	return nil
}

// Track starts tracking a keyword for one of the user's projects. The
// trackedKeywords capacity counts keywords over all of the user's projects.
func (s *Service) Track(ctx context.Context, userID, projectID uuid.UUID, in TrackInput) (*Keyword, error) {
	in.Keyword = NormalizeKeyword(in.Keyword)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.storage.GetProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	d, err := s.quota.CheckCapacity(ctx, userID, quota.TrackedKeywords)
	if err != nil {
		return nil, err
	}

	k := &Keyword{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Keyword:      in.Keyword,
		LocationCode: in.LocationCode,
		LanguageCode: in.LanguageCode,
		CreatedAt:    s.now().UTC(),
	}
	if k.LocationCode == 0 {
		k.LocationCode = defaultLocationCode
	}
	if k.LanguageCode == "" {
		k.LanguageCode = defaultLanguageCode
	}
	if err := s.storage.AddKeyword(ctx, userID, k, d.Limit); err != nil {
		switch {
		case errors.Is(err, ErrCapacityReached):
			return nil, capacityError(d)
		case errors.Is(err, ErrKeywordExists):
			return nil, err
		}
		return nil, fmt.Errorf("add keyword: %w", err)
	}
	return k, nil
}

func (s *Service) Keywords(ctx context.Context, userID, projectID uuid.UUID) ([]Keyword, error) {
	if _, err := s.storage.GetProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	list, err := s.storage.ListKeywords(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	if list == nil {
		list = []Keyword{}
	}
	return list, nil
}

func (s *Service) Untrack(ctx context.Context, userID, projectID, keywordID uuid.UUID) error {
	if _, err := s.storage.GetProject(ctx, userID, projectID); err != nil {
		return err
	}
	return s.storage.DeleteKeyword(ctx, projectID, keywordID)
}

// ProjectCounter counts the user's projects for the quota gate.
func (s *Service) ProjectCounter() quota.CounterFunc {
	return s.storage.CountProjects
}

// KeywordCounter counts the user's tracked keywords for the quota gate.
func (s *Service) KeywordCounter() quota.CounterFunc {
	return s.storage.CountKeywords
}

// capacityError reports a capacity lost to a concurrent insert after the
// up-front check passed.
func capacityError(d quota.Decision) error {
	d.Allowed = false
	d.Current = int64(d.Limit)
	return d.Err()
}

func hostOf(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	return u.Host
}
