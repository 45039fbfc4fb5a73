package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/ForumGo/internal/domain"
	"github.com/utafrali/ForumGo/pkg/database"
	apperrors "github.com/utafrali/ForumGo/pkg/errors"
)

// ResourceLookup implements repository.ResourceLookup over the posts and
// comments tables. Only ownership columns are read.
type ResourceLookup struct {
	db database.DBTX
}

// NewResourceLookup creates a new PostgreSQL-backed resource lookup.
func NewResourceLookup(db database.DBTX) *ResourceLookup {
	return &ResourceLookup{db: db}
}

// FindResource resolves a post by slug or id, or a comment by id.
func (l *ResourceLookup) FindResource(ctx context.Context, kind, publicID string) (_ *domain.Resource, err error) {
	var query string
	switch kind {
	case domain.ResourcePost:
		if _, perr := uuid.Parse(publicID); perr == nil {
			query = `SELECT id, slug, user_id FROM posts WHERE id = $1`
		} else {
			query = `SELECT id, slug, user_id FROM posts WHERE slug = $1`
		}
	case domain.ResourceComment:
		if _, perr := uuid.Parse(publicID); perr != nil {
			return nil, apperrors.ErrNotFound
		}
		query = `SELECT id, '' AS slug, user_id FROM comments WHERE id = $1`
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}

	ctx, end := database.TraceQuery(ctx, "FindResource", query)
	defer func() { end(err) }()

	res := domain.Resource{Kind: kind}
	err = l.db.QueryRow(ctx, query, publicID).Scan(&res.ID, &res.Slug, &res.OwnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan %s owner: %w", kind, err)
	}

	return &res, nil
}
