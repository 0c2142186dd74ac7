package projects

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/quota"
)

// Storage persists projects and tracked keywords. Lookups are scoped to the
// owner and report ErrProjectNotFound for rows owned by someone else.
//
// CreateProject and AddKeyword count what the user holds and insert in one
// atomic step. They return ErrCapacityReached instead of inserting when the
// count has reached limit. quota.Unlimited skips the count.
type Storage interface {
	CreateProject(ctx context.Context, p *Project, limit quota.Limit) error
	GetProject(ctx context.Context, userID, projectID uuid.UUID) (*Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID) ([]Project, error)
	DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error
	CountProjects(ctx context.Context, userID uuid.UUID) (int64, error)

	AddKeyword(ctx context.Context, userID uuid.UUID, k *Keyword, limit quota.Limit) error
	ListKeywords(ctx context.Context, projectID uuid.UUID) ([]Keyword, error)
	DeleteKeyword(ctx context.Context, projectID, keywordID uuid.UUID) error
	// CountKeywords counts tracked keywords across all of the user's projects.
	CountKeywords(ctx context.Context, userID uuid.UUID) (int64, error)
}
