package department

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/progreview/progreview-api/internal/errs"
)

// MemoryDepartmentRepository is the in-process DepartmentRepository.
type MemoryDepartmentRepository struct {
	mu    sync.RWMutex
	store map[string]Department
}

func NewMemoryDepartmentRepository() *MemoryDepartmentRepository {
	return &MemoryDepartmentRepository{store: map[string]Department{}}
}

func cloneDepartment(d Department) *Department {
	d.Chairs = append([]string{}, d.Chairs...)
	return &d
}

func (r *MemoryDepartmentRepository) Create(_ context.Context, d *Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if d.Chairs == nil {
		d.Chairs = []string{}
	}
	r.store[d.ID] = *cloneDepartment(*d)
	return nil
}

func (r *MemoryDepartmentRepository) Get(_ context.Context, id string) (*Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.store[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneDepartment(d), nil
}

func (r *MemoryDepartmentRepository) List(_ context.Context) ([]*Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Department, 0, len(r.store))
	for _, d := range r.store {
		out = append(out, cloneDepartment(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryDepartmentRepository) Update(_ context.Context, d *Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[d.ID]; !ok {
		return errs.ErrNotFound
	}
	d.UpdatedAt = time.Now().UTC()
	r.store[d.ID] = *cloneDepartment(*d)
	return nil
}

func (r *MemoryDepartmentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.store, id)
	return nil
}

// MemoryProgramRepository is the in-process ProgramRepository.
type MemoryProgramRepository struct {
	mu    sync.RWMutex
	store map[string]Program
}

func NewMemoryProgramRepository() *MemoryProgramRepository {
	return &MemoryProgramRepository{store: map[string]Program{}}
}

func (r *MemoryProgramRepository) Create(_ context.Context, p *Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	r.store[p.ID] = *p
	return nil
}

func (r *MemoryProgramRepository) Get(_ context.Context, id string) (*Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.store[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &p, nil
}

func (r *MemoryProgramRepository) filter(pred func(Program) bool) []*Program {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Program{}
	for _, p := range r.store {
		if pred(p) {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *MemoryProgramRepository) List(_ context.Context) ([]*Program, error) {
	return r.filter(func(Program) bool { return true }), nil
}

func (r *MemoryProgramRepository) ListByDepartment(_ context.Context, departmentID string) ([]*Program, error) {
	return r.filter(func(p Program) bool { return p.Department == departmentID }), nil
}

func (r *MemoryProgramRepository) CountByDepartment(ctx context.Context, departmentID string) (int64, error) {
	ps, _ := r.ListByDepartment(ctx, departmentID)
	return int64(len(ps)), nil
}

func (r *MemoryProgramRepository) Update(_ context.Context, p *Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[p.ID]; !ok {
		return errs.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	r.store[p.ID] = *p
	return nil
}

func (r *MemoryProgramRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.store, id)
	return nil
}
