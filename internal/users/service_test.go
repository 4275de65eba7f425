package users

import (
	"context"
	"testing"

	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/config"
	"github.com/progreview/progreview-api/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var admin = actionlog.Actor{ID: "root-id", Username: "root"}

func newTestService() (*Service, *actionlog.MemoryRepository) {
	settings := config.DefaultSettings()
	settings.SaltRounds = bcrypt.MinCost
	logs := actionlog.NewMemoryRepository()
	return NewService(NewMemoryUserRepository(), settings, actionlog.NewService(logs, 10)), logs
}

func TestCreate_HashesPasswordAndLogs(t *testing.T) {
	svc, logs := newTestService()
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Username: "userSpecTestUser", Password: "pw-123", Email: "email@example.com"}, admin)
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	assert.NotEqual(t, "pw-123", u.PasswordHash)
	assert.True(t, u.ComparePassword("pw-123"))
	assert.False(t, u.ComparePassword("nope"))
	assert.Equal(t, []string{}, u.Groups)

	actions, err := logs.Page(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "created a user", actions[0].Message)
	assert.Equal(t, u.ID, actions[0].TargetID)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := map[string]CreateInput{
		"missing username": {Username: "", Password: "pw", Email: "a@example.com"},
		"short username":   {Username: "abc", Password: "pw"},
		"long username":    {Username: "abcdefghijklmnopqrstu", Password: "pw"},
		"invalid email":    {Username: "valid-user", Password: "pw", Email: "example@examplecom"},
		"missing password": {Username: "valid-user", Email: "a@example.com"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, in, admin)
			require.ErrorIs(t, err, errs.ErrInvalidInput)
		})
	}

	_, err := svc.Create(ctx, CreateInput{Username: "valid-user", Password: "pw", Email: "example@example.com"}, admin)
	require.NoError(t, err)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{Username: "alice", Password: "pw"}, admin)
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Username: "alice", Password: "pw2"}, admin)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateInput{Username: "alice", Password: "correct horse"}, admin)
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = svc.Authenticate(ctx, "alice", "battery staple")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "nobody", "x")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u, err := svc.Create(ctx, CreateInput{Username: "alice", Password: "old"}, admin)
	require.NoError(t, err)

	groups := []string{"Administrators"}
	pw := "new"
	got, err := svc.Update(ctx, u.ID, UpdateInput{Groups: &groups, Password: &pw}, admin)
	require.NoError(t, err)
	assert.Equal(t, groups, got.Groups)

	_, err = svc.Authenticate(ctx, "alice", "new")
	require.NoError(t, err)

	bad := "x@y"
	_, err = svc.Update(ctx, u.ID, UpdateInput{Email: &bad}, admin)
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = svc.Update(ctx, "missing", UpdateInput{}, admin)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	u, err := svc.Create(ctx, CreateInput{Username: "alice", Password: "pw"}, admin)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, u.ID, admin))
	require.ErrorIs(t, svc.Delete(ctx, u.ID, admin), errs.ErrNotFound)
}

func TestPublicByIDs_SkipsMissing(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Username: "alice", Password: "pw"}, admin)
	require.NoError(t, err)

	got, err := svc.PublicByIDs(ctx, []string{a.ID, "gone"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)
}

func TestUpsertFromClaims(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	claims := map[string]interface{}{
		"sub":                "sub-123",
		"email":              "x@example.com",
		"preferred_username": "xuser",
		"given_name":         "X",
		"family_name":        "User",
		"groups":             []interface{}{"Reviewers"},
	}

	u, err := svc.UpsertFromClaims(ctx, claims)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "sub-123", u.Sub)
	assert.Equal(t, "xuser", u.Username)
	assert.Equal(t, "User", u.Name.Last)
	assert.Equal(t, []string{"Reviewers"}, u.Groups)
	assert.False(t, u.CreatedAt.IsZero())

	claims["email"] = "new@example.com"
	again, err := svc.UpsertFromClaims(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "new@example.com", again.Email)

	got, err := svc.GetBySub(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// missing sub => nil
	u2, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"email": "y@e.com"})
	require.NoError(t, err)
	assert.Nil(t, u2)
}
