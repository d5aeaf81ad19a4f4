// Package pages serves tenant-authored HTML stored in blob storage.
package pages

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/numgate/numgate-server/internal/models"
	"github.com/numgate/numgate-server/internal/storage"
)

// ErrNotFound indicates no stored content matches the requested path
var ErrNotFound = errors.New("page not found")

// fallbackHTML is served for the root path of a tenant with no content yet.
// An unconfigured site renders something rather than an error.
const fallbackHTML = `<!DOCTYPE html>
<html>
<head><title>Site being set up</title></head>
<body>
<h1>This site is being set up</h1>
<p>Check back soon.</p>
</body>
</html>`

// PageStore is the subset of storage.Store the page server needs
type PageStore interface {
	GetPage(ctx context.Context, tenantID uuid.UUID, path string) (*models.TenantPage, error)
}

// Server resolves a tenant and request path to stored content. Read-only:
// content is written by the admin surface.
type Server struct {
	store PageStore
}

// NewServer creates a new static page server
func NewServer(store PageStore) *Server {
	return &Server{store: store}
}

// Content is a resolved page payload
type Content struct {
	Body        []byte
	ContentType string
	// Fallback is set when the built-in placeholder was served instead of
	// stored content.
	Fallback bool
}

// Resolve maps a tenant and request path to stored content. Paths containing
// an "unpublished" segment are rejected outright. A total miss on the root
// path yields the built-in fallback; any other miss is ErrNotFound.
func (s *Server) Resolve(ctx context.Context, tenantID uuid.UUID, requestedPath string) (*Content, error) {
	if hasUnpublishedSegment(requestedPath) {
		return nil, ErrNotFound
	}

	key := strings.Trim(requestedPath, "/")
	isRoot := key == ""
	if isRoot {
		key = "index.html"
	}

	for _, candidate := range candidateKeys(key) {
		page, err := s.store.GetPage(ctx, tenantID, candidate)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !page.Published {
			continue
		}
		return &Content{Body: page.Content, ContentType: page.ContentType}, nil
	}

	if isRoot {
		return &Content{
			Body:        []byte(fallbackHTML),
			ContentType: "text/html; charset=utf-8",
			Fallback:    true,
		}, nil
	}

	return nil, ErrNotFound
}

// candidateKeys returns the storage keys to try in order. A path without a
// file extension also tries the ".html" and "/index.html" forms; first hit
// wins and case is significant.
func candidateKeys(key string) []string {
	if strings.Contains(lastSegment(key), ".") {
		return []string{key}
	}
	return []string{key, key + ".html", key + "/index.html"}
}

func lastSegment(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// hasUnpublishedSegment reports whether any path component equals
// "unpublished", regardless of case or position. Draft content must never be
// servable through the public path.
func hasUnpublishedSegment(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if strings.EqualFold(seg, "unpublished") {
			return true
		}
	}
	return false
}
