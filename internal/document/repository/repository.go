package repository

import (
	"context"

	"github.com/progreview/progreview-api/internal/document"
	"github.com/progreview/progreview-api/internal/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when no document or comment matches the id.
var ErrNotFound = errs.ErrNotFound

// Repository persists whole documents. Save replaces the stored document
// atomically; a failed Save leaves the previous version in place.
type Repository interface {
	Create(ctx context.Context, doc *document.Document) (string, error)
	Get(ctx context.Context, id string) (*document.Document, error)
	List(ctx context.Context) ([]*document.Document, error)
	Save(ctx context.Context, doc *document.Document) error
	Delete(ctx context.Context, id string) error
}

// CommentRepository persists comments, which reference their document.
type CommentRepository interface {
	Create(ctx context.Context, c *document.Comment) (string, error)
	Get(ctx context.Context, id string) (*document.Comment, error)
	ListByDocument(ctx context.Context, documentID string) ([]*document.Comment, error)
	Delete(ctx context.Context, id string) error
	// DeleteByDocument removes every comment of a document and returns how many were removed.
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
}

func newID() string {
	return primitive.NewObjectID().Hex()
}
