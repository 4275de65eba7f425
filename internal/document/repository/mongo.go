package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/progreview/progreview-api/internal/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements Repository over a "documents" collection. Documents
// are keyed by a hex ObjectID string in _id, and revisions are embedded.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(ctx context.Context, doc *document.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = newID()
	}
	if doc.Revisions == nil {
		doc.Revisions = []document.Revision{}
	}
	if doc.Comments == nil {
		doc.Comments = []string{}
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return doc.ID, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*document.Document, error) {
	var d document.Document
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]*document.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

// Save replaces the whole document in a single-document write, which Mongo
// applies atomically.
func (m *MongoRepo) Save(ctx context.Context, doc *document.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	res, err := m.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoCommentRepo implements CommentRepository over a "comments" collection.
type MongoCommentRepo struct {
	col *mongo.Collection
}

func NewMongoCommentRepo(col *mongo.Collection) *MongoCommentRepo {
	return &MongoCommentRepo{col: col}
}

// EnsureIndexes creates the document back-reference index used by the cascade delete.
func (m *MongoCommentRepo) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "document", Value: 1}, {Key: "createdAt", Value: 1}}}
	_, err := m.col.Indexes().CreateOne(ctx, idx)
	return err
}

func (m *MongoCommentRepo) Create(ctx context.Context, c *document.Comment) (string, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if _, err := m.col.InsertOne(ctx, c); err != nil {
		return "", fmt.Errorf("insert comment: %w", err)
	}
	return c.ID, nil
}

func (m *MongoCommentRepo) Get(ctx context.Context, id string) (*document.Comment, error) {
	var c document.Comment
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (m *MongoCommentRepo) ListByDocument(ctx context.Context, documentID string) ([]*document.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{"document": documentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Comment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoCommentRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoCommentRepo) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := m.col.DeleteMany(ctx, bson.M{"document": documentID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
