package projects_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seoscope/internal/projects"
	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/validator"
)

type memStorage struct {
	mu       sync.Mutex
	projects map[uuid.UUID]projects.Project
	keywords map[uuid.UUID]projects.Keyword

	// latency delays inserts before the lock is taken, like a round trip.
	latency time.Duration
}

func newMemStorage() *memStorage {
	return &memStorage{
		projects: make(map[uuid.UUID]projects.Project),
		keywords: make(map[uuid.UUID]projects.Keyword),
	}
}

func (m *memStorage) CreateProject(_ context.Context, p *projects.Project, limit quota.Limit) error {
	time.Sleep(m.latency)
	m.mu.Lock()
	defer m.mu.Unlock()
	var held int64
	for _, existing := range m.projects {
		if existing.URL == p.URL {
			return projects.ErrProjectExists
		}
		if existing.UserID == p.UserID {
			held++
		}
	}
	if !limit.Allows(held, 1) {
		return projects.ErrCapacityReached
	}
	m.projects[p.ID] = *p
	return nil
}

func (m *memStorage) GetProject(_ context.Context, userID, projectID uuid.UUID) (*projects.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.UserID != userID {
		return nil, projects.ErrProjectNotFound
	}
	return &p, nil
}

func (m *memStorage) ListProjects(_ context.Context, userID uuid.UUID) ([]projects.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []projects.Project
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStorage) DeleteProject(_ context.Context, userID, projectID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.UserID != userID {
		return projects.ErrProjectNotFound
	}
	delete(m.projects, projectID)
	for id, k := range m.keywords {
		if k.ProjectID == projectID {
			delete(m.keywords, id)
		}
	}
	return nil
}

func (m *memStorage) CountProjects(ctx context.Context, userID uuid.UUID) (int64, error) {
	list, _ := m.ListProjects(ctx, userID)
	return int64(len(list)), nil
}

func (m *memStorage) AddKeyword(_ context.Context, userID uuid.UUID, k *projects.Keyword, limit quota.Limit) error {
	time.Sleep(m.latency)
	m.mu.Lock()
	defer m.mu.Unlock()
	var held int64
	for _, existing := range m.keywords {
		if existing.ProjectID == k.ProjectID && existing.Keyword == k.Keyword {
			return projects.ErrKeywordExists
		}
		if p, ok := m.projects[existing.ProjectID]; ok && p.UserID == userID {
			held++
		}
	}
	if !limit.Allows(held, 1) {
		return projects.ErrCapacityReached
	}
	m.keywords[k.ID] = *k
	return nil
}

func (m *memStorage) ListKeywords(_ context.Context, projectID uuid.UUID) ([]projects.Keyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []projects.Keyword
	for _, k := range m.keywords {
		if k.ProjectID == projectID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStorage) DeleteKeyword(_ context.Context, projectID, keywordID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keywords[keywordID]
	if !ok || k.ProjectID != projectID {
		return projects.ErrKeywordNotFound
	}
	delete(m.keywords, keywordID)
	return nil
}

func (m *memStorage) CountKeywords(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range m.keywords {
		if p, ok := m.projects[k.ProjectID]; ok && p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func newService(t *testing.T, plan quota.PlanType) (*projects.Service, *memStorage) {
	t.Helper()
	storage := newMemStorage()
	resolver := quota.PlanResolverFunc(func(context.Context, uuid.UUID) (quota.PlanType, error) {
		return plan, nil
	})
	gate := quota.NewGate(quota.DefaultTable(), quota.NewMemoryStore(), resolver)
	svc := projects.NewService(storage, gate)
	gate.RegisterCounter(quota.Projects, svc.ProjectCounter())
	gate.RegisterCounter(quota.TrackedKeywords, svc.KeywordCounter())
	return svc, storage
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Example.COM":                    "https://example.com",
		"http://example.com/":            "http://example.com",
		"https://Shop.Example.com/blog/": "https://shop.example.com/blog",
		"example.com/path?q=1#frag":      "https://example.com/path",
		"https://example.com:8443":       "https://example.com:8443",
	}
	for in, want := range cases {
		got, err := projects.NormalizeURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "   ", "ftp://example.com", "localhost", "https://"} {
		_, err := projects.NormalizeURL(bad)
		assert.ErrorIs(t, err, projects.ErrInvalidURL, bad)
	}
}

func TestImport(t *testing.T) {
	t.Parallel()

	t.Run("normalizes and names after host", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, quota.PlanPro)
		userID := uuid.New()

		p, err := svc.Import(context.Background(), userID, projects.ImportInput{URL: "Example.com/"})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", p.URL)
		assert.Equal(t, "example.com", p.Name)
		assert.Equal(t, userID, p.UserID)
	})

	t.Run("invalid url is a validation error", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, quota.PlanPro)

		_, err := svc.Import(context.Background(), uuid.New(), projects.ImportInput{URL: "not a host"})
		require.ErrorIs(t, err, projects.ErrInvalidURL)
		var verr validator.Errors
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("url"))
	})

	t.Run("free plan holds one project", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, quota.PlanFree)
		userID := uuid.New()

		_, err := svc.Import(context.Background(), userID, projects.ImportInput{URL: "one.example.com"})
		require.NoError(t, err)

		_, err = svc.Import(context.Background(), userID, projects.ImportInput{URL: "two.example.com"})
		require.ErrorIs(t, err, quota.ErrLimitExceeded)
		var lerr *quota.LimitError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, quota.Projects, lerr.Category)
	})

	t.Run("concurrent imports stop at capacity", func(t *testing.T) {
		t.Parallel()
		svc, storage := newService(t, quota.PlanFree)
		storage.latency = 5 * time.Millisecond
		userID := uuid.New()

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			stored int
			denied int
		)
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Import(context.Background(), userID, projects.ImportInput{URL: fmt.Sprintf("site%d.example.com", i)})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					stored++
				case errors.Is(err, quota.ErrLimitExceeded):
					denied++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, stored)
		assert.Equal(t, 9, denied)
		n, err := storage.CountProjects(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("duplicate url", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, quota.PlanPro)

		_, err := svc.Import(context.Background(), uuid.New(), projects.ImportInput{URL: "dup.example.com"})
		require.NoError(t, err)
		_, err = svc.Import(context.Background(), uuid.New(), projects.ImportInput{URL: "https://DUP.example.com/"})
		assert.ErrorIs(t, err, projects.ErrProjectExists)
	})
}

func TestDeleteCascadesKeywords(t *testing.T) {
	t.Parallel()
	svc, storage := newService(t, quota.PlanPro)
	ctx := context.Background()
	userID := uuid.New()

	p, err := svc.Import(ctx, userID, projects.ImportInput{URL: "example.com"})
	require.NoError(t, err)
	_, err = svc.Track(ctx, userID, p.ID, projects.TrackInput{Keyword: "seo tools"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, uuid.New(), p.ID), projects.ErrProjectNotFound)
	require.NoError(t, svc.Delete(ctx, userID, p.ID))

	n, err := storage.CountKeywords(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestTrack(t *testing.T) {
	t.Parallel()

	t.Run("defaults and normalization", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, quota.PlanPro)
		ctx := context.Background()
		userID := uuid.New()
		p, err := svc.Import(ctx, userID, projects.ImportInput{URL: "example.com"})
		require.NoError(t, err)

		k, err := svc.Track(ctx, userID, p.ID, projects.TrackInput{Keyword: "  Best   SEO Tools "})
		require.NoError(t, err)
		assert.Equal(t, "best seo tools", k.Keyword)
		assert.Equal(t, 2840, k.LocationCode)
		assert.Equal(t, "en", k.LanguageCode)

		_, err = svc.Track(ctx, userID, p.ID, projects.TrackInput{Keyword: "best seo tools"})
		assert.ErrorIs(t, err, projects.ErrKeywordExists)

		list, err := svc.Keywords(ctx, userID, p.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		require.NoError(t, svc.Untrack(ctx, userID, p.ID, k.ID))
		assert.ErrorIs(t, svc.Untrack(ctx, userID, p.ID, k.ID), projects.ErrKeywordNotFound)
	})

	t.Run("other user's project", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, quota.PlanPro)
		ctx := context.Background()
		p, err := svc.Import(ctx, uuid.New(), projects.ImportInput{URL: "example.com"})
		require.NoError(t, err)

		_, err = svc.Track(ctx, uuid.New(), p.ID, projects.TrackInput{Keyword: "seo"})
		assert.ErrorIs(t, err, projects.ErrProjectNotFound)
	})

	t.Run("empty keyword", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, quota.PlanPro)
		ctx := context.Background()
		userID := uuid.New()
		p, err := svc.Import(ctx, userID, projects.ImportInput{URL: "example.com"})
		require.NoError(t, err)

		_, err = svc.Track(ctx, userID, p.ID, projects.TrackInput{Keyword: "   "})
		var verr validator.Errors
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("keyword"))
	})

	t.Run("free plan keyword capacity", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t, quota.PlanFree)
		ctx := context.Background()
		userID := uuid.New()
		p, err := svc.Import(ctx, userID, projects.ImportInput{URL: "example.com"})
		require.NoError(t, err)

		for i := range 10 {
			_, err := svc.Track(ctx, userID, p.ID, projects.TrackInput{Keyword: "keyword " + string(rune('a'+i))})
			require.NoError(t, err)
		}
		_, err = svc.Track(ctx, userID, p.ID, projects.TrackInput{Keyword: "one too many"})
		require.ErrorIs(t, err, quota.ErrLimitExceeded)
	})

	t.Run("concurrent tracking stops at capacity", func(t *testing.T) {
		t.Parallel()
		svc, storage := newService(t, quota.PlanFree)
		ctx := context.Background()
		userID := uuid.New()
		p, err := svc.Import(ctx, userID, projects.ImportInput{URL: "example.com"})
		require.NoError(t, err)
		storage.latency = 5 * time.Millisecond

		var wg sync.WaitGroup
		for i := range 25 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Track(ctx, userID, p.ID, projects.TrackInput{Keyword: fmt.Sprintf("keyword %d", i)})
				if err != nil {
					assert.ErrorIs(t, err, quota.ErrLimitExceeded)
				}
			}()
		}
		wg.Wait()

		n, err := storage.CountKeywords(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), n)
	})
}
