package main

import (
	"bytes"
	"context"
	"testing"

	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/storage"
	"civicdesk/backend/internal/storage/storagemock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testApp(st *storagemock.MockStorage) *app {
	st.On("Close").Return(nil)
	return &app{
		cfg: &config.Config{StoreDriver: config.DriverPostgres, JWTSecret: "s"},
		open: func(context.Context, bool) (storage.Storage, error) {
			return st, nil
		},
	}
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetRole(t *testing.T) {
	st := new(storagemock.MockStorage)
	u := &models.User{ID: "u1", Email: "taras@example.com", Role: models.RoleCitizen}
	st.On("GetUserByEmail", mock.Anything, "taras@example.com").Return(u, nil)
	st.On("SaveUser", mock.Anything, u).Return(nil)

	out, err := execute(t, testApp(st), "set-role", "Taras@Example.com", "official", "--department", "Water")
	require.NoError(t, err)
	assert.Contains(t, out, "taras@example.com is now official")
	assert.Equal(t, models.RoleOfficial, u.Role)
	assert.Equal(t, "Water", u.Department)
	st.AssertCalled(t, "Close")
}

func TestSetRole_Errors(t *testing.T) {
	st := new(storagemock.MockStorage)
	_, err := execute(t, testApp(st), "set-role", "a@b.co", "mayor")
	assert.Error(t, err)

	st.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, errs.NotFound("user"))
	_, err = execute(t, testApp(st), "set-role", "ghost@example.com", "admin")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	st.AssertNotCalled(t, "SaveUser", mock.Anything, mock.Anything)
}

func TestSeed_WithoutAdminCredentials(t *testing.T) {
	st := new(storagemock.MockStorage)
	st.On("GetCategoryByName", mock.Anything, mock.Anything).Return(&models.Category{ID: "x"}, nil)

	out, err := execute(t, testApp(st), "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "categories added: 0")
	assert.Contains(t, out, "skipping admin account")
}

func TestStatsSummary(t *testing.T) {
	st := new(storagemock.MockStorage)
	st.On("AllComplaints", mock.Anything).Return([]models.Complaint{
		{ID: "1", Status: models.StatusPending},
		{ID: "2", Status: models.StatusAcknowledged},
	}, nil)

	out, err := execute(t, testApp(st), "stats", "summary")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 2`)
	assert.Contains(t, out, `"responseRate": 50`)
}
