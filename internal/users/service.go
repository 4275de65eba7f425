package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/config"
	"github.com/progreview/progreview-api/internal/errs"
	"github.com/progreview/progreview-api/internal/models"
	"github.com/progreview/progreview-api/pkg/logger"
)

// Service encapsulates user-related business logic
type Service struct {
	repo     UserRepository
	settings config.Settings
	actions  *actionlog.Service
	validate *validator.Validate
}

// NewService returns a user service. actions may be nil.
func NewService(r UserRepository, settings config.Settings, actions *actionlog.Service) *Service {
	return &Service{repo: r, settings: settings, actions: actions, validate: validator.New()}
}

// CreateInput carries the fields of a new local user.
type CreateInput struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Email    string      `json:"email"`
	Name     models.Name `json:"name"`
	Internal bool        `json:"internal"`
	Root     bool        `json:"root"`
	Groups   []string    `json:"groups"`
}

// UpdateInput holds the fields a PATCH may change; nil means unchanged.
type UpdateInput struct {
	Username *string      `json:"username"`
	Password *string      `json:"password"`
	Email    *string      `json:"email"`
	Name     *models.Name `json:"name"`
	Internal *bool        `json:"internal"`
	Root     *bool        `json:"root"`
	Groups   *[]string    `json:"groups"`
}

func (s *Service) checkUsername(username string) error {
	n := len([]rune(username))
	if username == "" {
		return fmt.Errorf("username is required: %w", errs.ErrInvalidInput)
	}
	if n < s.settings.MinUsernameLength || n > s.settings.MaxUsernameLength {
		return fmt.Errorf("username must be %d to %d characters: %w",
			s.settings.MinUsernameLength, s.settings.MaxUsernameLength, errs.ErrInvalidInput)
	}
	return nil
}

func (s *Service) checkEmail(email string) error {
	if email == "" {
		return nil
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return fmt.Errorf("invalid email %q: %w", email, errs.ErrInvalidInput)
	}
	return nil
}

// Create validates and stores a local user with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, in CreateInput, actor actionlog.Actor) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.checkUsername(in.Username); err != nil {
		return nil, err
	}
	if err := s.checkEmail(in.Email); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, fmt.Errorf("password is required: %w", errs.ErrInvalidInput)
	}
	u := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Name:     in.Name,
		Internal: in.Internal,
		Root:     in.Root,
		Groups:   in.Groups,
	}
	if u.Groups == nil {
		u.Groups = []string{}
	}
	if err := u.SetPassword(in.Password, s.settings.SaltRounds); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.Infof("Created user %s with id %s", u.Username, u.ID)
	s.actions.Log(ctx, "created a user", actor, "user", u.ID, u.Username)
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.List(ctx)
}

// PublicByIDs resolves ids to public views, skipping ids that no longer exist.
func (s *Service) PublicByIDs(ctx context.Context, ids []string) ([]models.PublicUser, error) {
	us, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(us))
	for _, u := range us {
		out = append(out, u.Public())
	}
	return out, nil
}

// Update applies in to the user with id.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, actor actionlog.Actor) (*models.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if err := s.checkUsername(name); err != nil {
			return nil, err
		}
		u.Username = name
	}
	if in.Email != nil {
		if err := s.checkEmail(*in.Email); err != nil {
			return nil, err
		}
		u.Email = *in.Email
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Internal != nil {
		u.Internal = *in.Internal
	}
	if in.Root != nil {
		u.Root = *in.Root
	}
	if in.Groups != nil {
		u.Groups = append([]string{}, (*in.Groups)...)
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, fmt.Errorf("password must not be empty: %w", errs.ErrInvalidInput)
		}
		if err := u.SetPassword(*in.Password, s.settings.SaltRounds); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.actions.Log(ctx, "updated a user", actor, "user", u.ID, u.Username)
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string, actor actionlog.Actor) error {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Infof("Deleted user %s", id)
	s.actions.Log(ctx, "deleted a user", actor, "user", id, u.Username)
	return nil
}

// Authenticate checks username and password. Unknown users and wrong
// passwords both yield errs.ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	if !u.ComparePassword(password) {
		return nil, errs.ErrUnauthorized
	}
	return u, nil
}

// UpsertFromClaims creates or updates a user using OIDC claims map
func (s *Service) UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, nil
	}
	email, _ := claims["email"].(string)
	username, _ := claims["preferred_username"].(string)
	if username == "" {
		username = sub
	}
	first, _ := claims["given_name"].(string)
	last, _ := claims["family_name"].(string)
	u := &models.User{
		Sub:      sub,
		Username: username,
		Email:    email,
		Name:     models.Name{First: first, Last: last},
		Groups:   claimGroups(claims["groups"]),
	}
	return s.repo.UpsertBySub(ctx, u)
}

func claimGroups(v interface{}) []string {
	out := []string{}
	switch gs := v.(type) {
	case []string:
		out = append(out, gs...)
	case []interface{}:
		for _, g := range gs {
			if s, ok := g.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func (s *Service) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return s.repo.GetBySub(ctx, sub)
}
