package store

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/seoscope/internal/projects"
	"github.com/dmitrymomot/seoscope/pkg/pg"
	"github.com/dmitrymomot/seoscope/pkg/quota"
)

// ProjectStore implements projects.Storage.
type ProjectStore struct {
	db DB
}

func NewProjectStore(db DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// CreateProject counts the owner's projects and inserts inside one transaction
// that holds the owner's users row, so concurrent imports queue up behind it.
func (s *ProjectStore) CreateProject(ctx context.Context, p *projects.Project, limit quota.Limit) error {
	return s.lockOwner(ctx, p.UserID, func(q Querier) error {
		if !limit.Unlimited() {
			held, err := countProjects(ctx, q, p.UserID)
			if err != nil {
				return err
			}
			if !limit.Allows(held, 1) {
				return projects.ErrCapacityReached
			}
		}

		query, args, err := psql.Insert("projects").
			Columns("id", "user_id", "name", "url", "created_at").
			Values(p.ID, p.UserID, p.Name, p.URL, p.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert project query: %w", err)
		}

		if _, err := q.Exec(ctx, query, args...); err != nil {
			if pg.IsDuplicateKeyError(err) {
				return projects.ErrProjectExists
			}
			return fmt.Errorf("insert project: %w", err)
		}
		return nil
	})
}

// lockOwner runs fn in a transaction that holds the user's row FOR UPDATE.
// Capacity counts taken inside fn stay valid until commit.
func (s *ProjectStore) lockOwner(ctx context.Context, userID uuid.UUID, fn func(q Querier) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	var one int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&one); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("lock user: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *ProjectStore) selectProjects() squirrel.SelectBuilder {
	return psql.Select("p.id", "p.user_id", "p.name", "p.url", "p.created_at", "COUNT(k.id)").
		From("projects p").
		LeftJoin("tracked_keywords k ON k.project_id = p.id").
		GroupBy("p.id")
}

func (s *ProjectStore) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*projects.Project, error) {
	query, args, err := s.selectProjects().
		Where(squirrel.Eq{"p.id": projectID, "p.user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select project query: %w", err)
	}

	p, err := scanProject(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, projects.ErrProjectNotFound
		}
		return nil, fmt.Errorf("select project: %w", err)
	}
	return p, nil
}

func (s *ProjectStore) ListProjects(ctx context.Context, userID uuid.UUID) ([]projects.Project, error) {
	query, args, err := s.selectProjects().
		Where(squirrel.Eq{"p.user_id": userID}).
		OrderBy("p.created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list projects query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var list []projects.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		list = append(list, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return list, nil
}

// DeleteProject removes the project. Tracked keywords go with it through the
// foreign key cascade.
func (s *ProjectStore) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	query, args, err := psql.Delete("projects").
		Where(squirrel.Eq{"id": projectID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete project query: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return projects.ErrProjectNotFound
	}
	return nil
}

func (s *ProjectStore) CountProjects(ctx context.Context, userID uuid.UUID) (int64, error) {
	return countProjects(ctx, s.db, userID)
}

func countProjects(ctx context.Context, q Querier, userID uuid.UUID) (int64, error) {
	var n int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM projects WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

// AddKeyword enforces the trackedKeywords capacity the same way CreateProject
// does, counting over all of the user's projects.
func (s *ProjectStore) AddKeyword(ctx context.Context, userID uuid.UUID, k *projects.Keyword, limit quota.Limit) error {
	return s.lockOwner(ctx, userID, func(q Querier) error {
		if !limit.Unlimited() {
			held, err := countKeywords(ctx, q, userID)
			if err != nil {
				return err
			}
			if !limit.Allows(held, 1) {
				return projects.ErrCapacityReached
			}
		}

		query, args, err := psql.Insert("tracked_keywords").
			Columns("id", "project_id", "keyword", "location_code", "language_code", "created_at").
			Values(k.ID, k.ProjectID, k.Keyword, k.LocationCode, k.LanguageCode, k.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert keyword query: %w", err)
		}

		if _, err := q.Exec(ctx, query, args...); err != nil {
			switch {
			case pg.IsDuplicateKeyError(err):
				return projects.ErrKeywordExists
			case pg.IsForeignKeyViolationError(err):
				return projects.ErrProjectNotFound
			}
			return fmt.Errorf("insert keyword: %w", err)
		}
		return nil
	})
}

func (s *ProjectStore) ListKeywords(ctx context.Context, projectID uuid.UUID) ([]projects.Keyword, error) {
	query, args, err := psql.Select("id", "project_id", "keyword", "location_code", "language_code", "created_at").
		From("tracked_keywords").
		Where(squirrel.Eq{"project_id": projectID}).
		OrderBy("keyword").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list keywords query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (projects.Keyword, error) {
		var k projects.Keyword
		err := row.Scan(&k.ID, &k.ProjectID, &k.Keyword, &k.LocationCode, &k.LanguageCode, &k.CreatedAt)
		return k, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan keywords: %w", err)
	}
	return list, nil
}

func (s *ProjectStore) DeleteKeyword(ctx context.Context, projectID, keywordID uuid.UUID) error {
	query, args, err := psql.Delete("tracked_keywords").
		Where(squirrel.Eq{"id": keywordID, "project_id": projectID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete keyword query: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return projects.ErrKeywordNotFound
	}
	return nil
}

func (s *ProjectStore) CountKeywords(ctx context.Context, userID uuid.UUID) (int64, error) {
	return countKeywords(ctx, s.db, userID)
}

func countKeywords(ctx context.Context, q Querier, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM tracked_keywords k JOIN projects p ON p.id = k.project_id WHERE p.user_id = $1`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count keywords: %w", err)
	}
	return n, nil
}

func scanProject(row scanner) (*projects.Project, error) {
	var p projects.Project
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.URL, &p.CreatedAt, &p.KeywordCount); err != nil {
		return nil, err
	}
	return &p, nil
}
