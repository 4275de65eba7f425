package department

import (
	"context"
	"errors"
	"time"

	"github.com/progreview/progreview-api/internal/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DepartmentRepository persists departments. Missing ids yield errs.ErrNotFound.
type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	Get(ctx context.Context, id string) (*Department, error)
	List(ctx context.Context) ([]*Department, error)
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id string) error
}

// ProgramRepository persists programs. Missing ids yield errs.ErrNotFound.
type ProgramRepository interface {
	Create(ctx context.Context, p *Program) error
	Get(ctx context.Context, id string) (*Program, error)
	List(ctx context.Context) ([]*Program, error)
	ListByDepartment(ctx context.Context, departmentID string) ([]*Program, error)
	CountByDepartment(ctx context.Context, departmentID string) (int64, error)
	Update(ctx context.Context, p *Program) error
	Delete(ctx context.Context, id string) error
}

func stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	*created = now
	*updated = now
}

// MongoDepartmentRepository stores departments in one collection.
type MongoDepartmentRepository struct {
	col *mongo.Collection
}

func NewMongoDepartmentRepository(col *mongo.Collection) *MongoDepartmentRepository {
	return &MongoDepartmentRepository{col: col}
}

func (r *MongoDepartmentRepository) Create(ctx context.Context, d *Department) error {
	stamp(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if d.Chairs == nil {
		d.Chairs = []string{}
	}
	_, err := r.col.InsertOne(ctx, d)
	return err
}

func (r *MongoDepartmentRepository) Get(ctx context.Context, id string) (*Department, error) {
	var d Department
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *MongoDepartmentRepository) List(ctx context.Context) ([]*Department, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []*Department{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoDepartmentRepository) Update(ctx context.Context, d *Department) error {
	d.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": d.ID}, d)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *MongoDepartmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// MongoProgramRepository stores programs in one collection indexed by department.
type MongoProgramRepository struct {
	col *mongo.Collection
}

func NewMongoProgramRepository(col *mongo.Collection) *MongoProgramRepository {
	return &MongoProgramRepository{col: col}
}

func (r *MongoProgramRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "department", Value: 1}}})
	return err
}

func (r *MongoProgramRepository) Create(ctx context.Context, p *Program) error {
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *MongoProgramRepository) Get(ctx context.Context, id string) (*Program, error) {
	var p Program
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoProgramRepository) find(ctx context.Context, filter bson.M) ([]*Program, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []*Program{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoProgramRepository) List(ctx context.Context) ([]*Program, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoProgramRepository) ListByDepartment(ctx context.Context, departmentID string) ([]*Program, error) {
	return r.find(ctx, bson.M{"department": departmentID})
}

func (r *MongoProgramRepository) CountByDepartment(ctx context.Context, departmentID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"department": departmentID})
}

func (r *MongoProgramRepository) Update(ctx context.Context, p *Program) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *MongoProgramRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.ErrNotFound
	}
	return nil
}
