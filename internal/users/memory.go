package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/progreview/progreview-api/internal/errs"
	"github.com/progreview/progreview-api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUserRepository is the in-process UserRepository used without MongoDB
// and in tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	store map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{store: map[string]models.User{}}
}

func clone(u models.User) *models.User {
	u.Groups = append([]string(nil), u.Groups...)
	return &u
}

func (r *MemoryUserRepository) usernameTaken(username, exceptID string) bool {
	for id, u := range r.store {
		if id != exceptID && u.Username == username {
			return true
		}
	}
	return false
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usernameTaken(u.Username, "") {
		return "", errs.ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.store[u.ID] = *clone(*u)
	return u.ID, nil
}

func (r *MemoryUserRepository) Get(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.store[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return clone(u), nil
}

func (r *MemoryUserRepository) match(pred func(models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.store {
		if pred(u) {
			return clone(u), nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.match(func(u models.User) bool { return u.Username == username })
}

func (r *MemoryUserRepository) GetBySub(_ context.Context, sub string) (*models.User, error) {
	return r.match(func(u models.User) bool { return sub != "" && u.Sub == sub })
}

func (r *MemoryUserRepository) GetMany(_ context.Context, ids []string) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.User{}
	for _, id := range ids {
		if u, ok := r.store[id]; ok {
			out = append(out, clone(u))
		}
	}
	sortByUsername(out)
	return out, nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.User, 0, len(r.store))
	for _, u := range r.store {
		out = append(out, clone(u))
	}
	sortByUsername(out)
	return out, nil
}

func sortByUsername(us []*models.User) {
	sort.Slice(us, func(i, j int) bool { return us[i].Username < us[j].Username })
}

func (r *MemoryUserRepository) Update(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[u.ID]; !ok {
		return errs.ErrNotFound
	}
	if r.usernameTaken(u.Username, u.ID) {
		return errs.ErrAlreadyExists
	}
	u.UpdatedAt = time.Now().UTC()
	r.store[u.ID] = *clone(*u)
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *MemoryUserRepository) UpsertBySub(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for id, existing := range r.store {
		if existing.Sub == u.Sub {
			existing.Email = u.Email
			existing.Name = u.Name
			existing.Groups = u.Groups
			existing.UpdatedAt = now
			r.store[id] = *clone(existing)
			return clone(existing), nil
		}
	}
	if r.usernameTaken(u.Username, "") {
		return nil, errs.ErrAlreadyExists
	}
	nu := *clone(*u)
	nu.ID = primitive.NewObjectID().Hex()
	nu.Internal, nu.Root = false, false
	nu.CreatedAt, nu.UpdatedAt = now, now
	r.store[nu.ID] = nu
	return clone(nu), nil
}
