package pages

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numgate/numgate-server/internal/models"
	"github.com/numgate/numgate-server/internal/storage"
)

// fakePageStore keys pages by path for a single tenant
type fakePageStore struct {
	pages map[string]*models.TenantPage
	err   error

	requested []string
}

func newFakePageStore() *fakePageStore {
	return &fakePageStore{pages: make(map[string]*models.TenantPage)}
}

func (f *fakePageStore) add(path, body string, published bool) {
	f.pages[path] = &models.TenantPage{
		Path:        path,
		Content:     []byte(body),
		ContentType: "text/html; charset=utf-8",
		Published:   published,
	}
}

func (f *fakePageStore) GetPage(ctx context.Context, tenantID uuid.UUID, path string) (*models.TenantPage, error) {
	f.requested = append(f.requested, path)
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.pages[path]; ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func TestResolve_ExactPath(t *testing.T) {
	store := newFakePageStore()
	store.add("about.html", "<h1>About</h1>", true)

	s := NewServer(store)

	content, err := s.Resolve(context.Background(), uuid.New(), "/about.html")
	require.NoError(t, err)
	assert.Equal(t, "<h1>About</h1>", string(content.Body))
	assert.False(t, content.Fallback)
}

func TestResolve_ExtensionlessPathTriesHTMLForms(t *testing.T) {
	store := newFakePageStore()
	store.add("about.html", "<h1>About</h1>", true)

	s := NewServer(store)

	content, err := s.Resolve(context.Background(), uuid.New(), "/about")
	require.NoError(t, err)
	assert.Equal(t, "<h1>About</h1>", string(content.Body))

	// Candidates are tried in order: exact, then .html, then /index.html.
	assert.Equal(t, []string{"about", "about.html"}, store.requested)
}

func TestResolve_DirectoryIndexForm(t *testing.T) {
	store := newFakePageStore()
	store.add("docs/index.html", "<h1>Docs</h1>", true)

	s := NewServer(store)

	content, err := s.Resolve(context.Background(), uuid.New(), "/docs")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Docs</h1>", string(content.Body))
	assert.Equal(t, []string{"docs", "docs.html", "docs/index.html"}, store.requested)
}

func TestResolve_PathWithExtensionTriesOnlyExact(t *testing.T) {
	store := newFakePageStore()

	s := NewServer(store)

	_, err := s.Resolve(context.Background(), uuid.New(), "/logo.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"logo.png"}, store.requested)
}

func TestResolve_RootMapsToIndex(t *testing.T) {
	store := newFakePageStore()
	store.add("index.html", "<h1>Home</h1>", true)

	s := NewServer(store)

	content, err := s.Resolve(context.Background(), uuid.New(), "/")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Home</h1>", string(content.Body))
}

func TestResolve_RootFallbackServedWhenNothingStored(t *testing.T) {
	store := newFakePageStore()

	s := NewServer(store)

	content, err := s.Resolve(context.Background(), uuid.New(), "/")
	require.NoError(t, err)
	assert.True(t, content.Fallback)
	assert.Contains(t, string(content.Body), "being set up")
	assert.Equal(t, "text/html; charset=utf-8", content.ContentType)
}

func TestResolve_NonRootMissIsNotFound(t *testing.T) {
	store := newFakePageStore()

	s := NewServer(store)

	_, err := s.Resolve(context.Background(), uuid.New(), "/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_UnpublishedSegmentIsRejected(t *testing.T) {
	store := newFakePageStore()
	store.add("unpublished/draft.html", "<h1>Draft</h1>", true)

	s := NewServer(store)

	for _, path := range []string{
		"/unpublished/draft.html",
		"/docs/unpublished/draft.html",
		"/UNPUBLISHED/draft.html",
	} {
		_, err := s.Resolve(context.Background(), uuid.New(), path)
		assert.ErrorIs(t, err, ErrNotFound, path)
	}

	// The store is never consulted for such paths.
	assert.Empty(t, store.requested)
}

func TestResolve_UnpublishedPageIsSkipped(t *testing.T) {
	store := newFakePageStore()
	store.add("about.html", "<h1>Draft</h1>", false)

	s := NewServer(store)

	_, err := s.Resolve(context.Background(), uuid.New(), "/about.html")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_StoreErrorPropagates(t *testing.T) {
	store := newFakePageStore()
	store.err = errors.New("connection refused")

	s := NewServer(store)

	_, err := s.Resolve(context.Background(), uuid.New(), "/about.html")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "infrastructure failures must not read as a missing page")
}
