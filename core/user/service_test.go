package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/user"
	inmemdb "github.com/trezcool/stage/storage/database/inmem"
	testutil "github.com/trezcool/stage/tests"
)

func setup(t *testing.T) (user.Service, user.Repository) {
	t.Helper()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo), repo
}

func Test_service_Create(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{Name: "Jane", Username: "jane", Password: "Secret-123!", Roles: []string{user.RoleStudent}})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsStudent())
	assert.NoError(t, usr.CheckPassword("Secret-123!"))

	err = svc.CheckUniqueness(ctx, "jane", "")
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, map[string]string{"username": user.ErrUsernameExists.Error()}, vErr.FieldMap())

	// the user itself is excluded on updates
	assert.NoError(t, svc.CheckUniqueness(ctx, "jane", "", usr))
}

func Test_service_GetByUsernameOrEmail(t *testing.T) {
	svc, repo := setup(t)
	jane := testutil.CreateUser(t, repo, "Jane", "jane", "jane@stage.test", "", nil, true)

	tests := []struct {
		name    string
		uname   string
		wantErr error
	}{
		{name: "empty", uname: "  ", wantErr: user.ErrNotFound},
		{name: "unknown", uname: "lol", wantErr: user.ErrNotFound},
		{name: "username", uname: " Jane "},
		{name: "email", uname: "JANE@stage.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetByUsernameOrEmail(context.Background(), tt.uname)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, jane.ID, got.ID)
		})
	}
}

func Test_service_Query(t *testing.T) {
	svc, repo := setup(t)
	jane := testutil.CreateUser(t, repo, "Jane", "jane", "jane@stage.test", "", []string{user.RoleStudent}, true)
	john := testutil.CreateUser(t, repo, "John", "john", "john@stage.test", "", []string{user.RoleStudent}, false)
	boss := testutil.CreateUser(t, repo, "Boss", "boss", "boss@stage.test", "", []string{user.RoleManager}, true)
	active := true

	tests := []struct {
		name   string
		filter user.QueryFilter
		want   []string
	}{
		{name: "all", want: []string{jane.ID, john.ID, boss.ID}},
		{name: "search", filter: user.QueryFilter{Search: " JO "}, want: []string{john.ID}},
		{name: "students", filter: user.QueryFilter{Roles: []string{user.RoleStudent}}, want: []string{jane.ID, john.ID}},
		{name: "active students", filter: user.QueryFilter{Roles: []string{user.RoleStudent}, IsActive: &active}, want: []string{jane.ID}},
		{name: "none", filter: user.QueryFilter{Search: "lol"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(context.Background(), tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, u := range got {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func Test_service_SetPassword(t *testing.T) {
	svc, repo := setup(t)
	jane := testutil.CreateUser(t, repo, "Jane", "jane", "", "Old-pass-1!", nil, true)

	updated, err := svc.SetPassword(context.Background(), jane, "New-pass-1!")
	require.NoError(t, err)
	assert.NoError(t, updated.CheckPassword("New-pass-1!"))
	assert.True(t, updated.UpdatedAt.After(jane.UpdatedAt) || updated.UpdatedAt.Equal(jane.UpdatedAt))

	updated, err = svc.SetLastLogin(context.Background(), updated)
	require.NoError(t, err)
	assert.False(t, updated.LastLogin.IsZero())

	_, err = svc.SetPassword(context.Background(), user.User{ID: "lol"}, "New-pass-1!")
	assert.Equal(t, user.ErrNotFound, err)
}
