package actionlog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository stores actions and pages through them newest first.
type Repository interface {
	Insert(ctx context.Context, a *Action) error
	Page(ctx context.Context, skip, limit int64) ([]*Action, error)
}

// MongoRepository implements Repository over an "actions" collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the createdAt index used for paging.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}})
	return err
}

func (r *MongoRepository) Insert(ctx context.Context, a *Action) error {
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.col.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func (r *MongoRepository) Page(ctx context.Context, skip, limit int64) ([]*Action, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Action{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MemoryRepository is the in-memory Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	actions []Action
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Insert(_ context.Context, a *Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	r.actions = append(r.actions, *a)
	return nil
}

func (r *MemoryRepository) Page(_ context.Context, skip, limit int64) ([]*Action, error) {
	r.mu.RLock()
	sorted := make([]Action, len(r.actions))
	copy(sorted, r.actions)
	r.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	out := []*Action{}
	for i := skip; i < int64(len(sorted)) && int64(len(out)) < limit; i++ {
		a := sorted[i]
		out = append(out, &a)
	}
	return out, nil
}
