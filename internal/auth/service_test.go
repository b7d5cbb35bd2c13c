package auth_test

import (
	"context"
	"testing"
	"time"

	"civicdesk/backend/internal/auth"
	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/storage/storagemock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAuth(st *storagemock.MockStorage) *auth.Service {
	return auth.NewService(st, auth.NewTokens("test-secret", time.Hour))
}

func userWithPassword(t *testing.T, id string, role models.Role, password string) *models.User {
	t.Helper()
	hashed, err := auth.HashPassword(password)
	require.NoError(t, err)
	return &models.User{ID: id, Name: "User " + id, Email: id + "@example.com", Password: hashed, Role: role}
}

func TestRegister_CreatesCitizen(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := newAuth(st)

	st.On("GetUserByEmail", mock.Anything, "ivan@example.com").Return(nil, errs.NotFound("user"))
	st.On("CreateUser", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = "u-new" }).
		Return(nil)

	sess, err := svc.Register(context.Background(), auth.RegisterInput{
		Name: "Ivan", Email: "  Ivan@Example.COM ", Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, models.RoleCitizen, sess.User.Role)
	assert.Equal(t, "ivan@example.com", sess.User.Email)
	assert.NotEqual(t, "secret1", sess.User.Password)
}

func TestRegister_Validation(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := newAuth(st)

	_, err := svc.Register(context.Background(), auth.RegisterInput{Name: "", Email: "a@b.co", Password: "secret1"})
	assert.True(t, errs.IsValidation(err))
	_, err = svc.Register(context.Background(), auth.RegisterInput{Name: "A", Email: "nope", Password: "secret1"})
	assert.True(t, errs.IsValidation(err))
	_, err = svc.Register(context.Background(), auth.RegisterInput{Name: "A", Email: "a@b.co", Password: "123"})
	assert.True(t, errs.IsValidation(err))

	st.On("GetUserByEmail", mock.Anything, "taken@example.com").Return(&models.User{ID: "x"}, nil)
	_, err = svc.Register(context.Background(), auth.RegisterInput{Name: "A", Email: "taken@example.com", Password: "secret1"})
	assert.True(t, errs.IsValidation(err))
	st.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestLogin(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := newAuth(st)
	citizen := userWithPassword(t, "cit", models.RoleCitizen, "pass123")
	admin := userWithPassword(t, "adm", models.RoleAdmin, "pass123")
	st.On("GetUserByEmail", mock.Anything, "cit@example.com").Return(citizen, nil)
	st.On("GetUserByEmail", mock.Anything, "adm@example.com").Return(admin, nil)
	st.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, errs.NotFound("user"))

	ctx := context.Background()

	sess, err := svc.Login(ctx, "CIT@example.com", "pass123")
	require.NoError(t, err)
	assert.Equal(t, "cit", sess.User.ID)

	_, err = svc.Login(ctx, "cit@example.com", "wrong")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = svc.Login(ctx, "ghost@example.com", "pass123")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = svc.Login(ctx, "adm@example.com", "pass123")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	sess, err = svc.AdminLogin(ctx, "adm@example.com", "pass123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, sess.User.Role)

	_, err = svc.AdminLogin(ctx, "cit@example.com", "pass123")
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestAuthenticate(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := newAuth(st)
	u := &models.User{ID: "u-1", Role: models.RoleCitizen}
	token, err := svc.Tokens.Generate(u)
	require.NoError(t, err)

	st.On("GetUserByID", mock.Anything, "u-1").Return(u, nil).Once()
	got, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	st.On("GetUserByID", mock.Anything, "u-1").Return(nil, errs.NotFound("user")).Once()
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)

	_, err = svc.Authenticate(context.Background(), "broken")
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := newAuth(st)
	u := &models.User{ID: "u-1", Name: "Old", Role: models.RoleCitizen}
	st.On("GetUserByID", mock.Anything, "u-1").Return(u, nil)
	st.On("SaveUser", mock.Anything, u).Return(nil)

	name, phone := " New ", "+380"
	got, err := svc.UpdateProfile(context.Background(), "u-1", models.ProfileUpdate{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "+380", got.Phone)
	assert.Equal(t, models.RoleCitizen, got.Role)

	empty := ""
	_, err = svc.UpdateProfile(context.Background(), "u-1", models.ProfileUpdate{Name: &empty})
	assert.True(t, errs.IsValidation(err))
}

func TestUpdateRole(t *testing.T) {
	admin := &models.User{ID: "adm", Role: models.RoleAdmin}

	t.Run("admin promotes citizen", func(t *testing.T) {
		st := new(storagemock.MockStorage)
		svc := newAuth(st)
		u := &models.User{ID: "u-1", Role: models.RoleCitizen}
		st.On("GetUserByID", mock.Anything, "u-1").Return(u, nil)
		st.On("SaveUser", mock.Anything, u).Return(nil)

		got, err := svc.UpdateRole(context.Background(), admin, "u-1", models.RoleOfficial, "Roads")
		require.NoError(t, err)
		assert.Equal(t, models.RoleOfficial, got.Role)
		assert.Equal(t, "Roads", got.Department)
	})

	t.Run("non admin forbidden", func(t *testing.T) {
		svc := newAuth(new(storagemock.MockStorage))
		_, err := svc.UpdateRole(context.Background(), &models.User{ID: "o", Role: models.RoleOfficial}, "u-1", models.RoleAdmin, "")
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("bad role and self demotion", func(t *testing.T) {
		svc := newAuth(new(storagemock.MockStorage))
		_, err := svc.UpdateRole(context.Background(), admin, "u-1", "mayor", "")
		assert.True(t, errs.IsValidation(err))
		_, err = svc.UpdateRole(context.Background(), admin, "adm", models.RoleCitizen, "")
		assert.True(t, errs.IsValidation(err))
	})
}

func TestListStaffAndDelete(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := newAuth(st)
	admin := &models.User{ID: "adm", Role: models.RoleAdmin}

	staff := []models.User{{ID: "o1", Role: models.RoleOfficial}, {ID: "adm", Role: models.RoleAdmin}}
	st.On("ListUsers", mock.Anything, []models.Role{models.RoleOfficial, models.RoleAdmin}).Return(staff, nil)
	got, err := svc.ListStaff(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)

	st.On("DeleteUser", mock.Anything, "u-1").Return(nil)
	assert.NoError(t, svc.DeleteUser(context.Background(), admin, "u-1"))
	assert.True(t, errs.IsValidation(svc.DeleteUser(context.Background(), admin, "adm")))

	st.On("DeleteUser", mock.Anything, "ghost").Return(errs.NotFound("user"))
	assert.ErrorIs(t, svc.DeleteUser(context.Background(), admin, "ghost"), errs.ErrNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	st := new(storagemock.MockStorage)
	svc := newAuth(st)
	existing := &models.User{ID: "u-1", Email: "boss@example.com", Role: models.RoleOfficial}
	st.On("GetUserByEmail", mock.Anything, "boss@example.com").Return(existing, nil)
	st.On("SaveUser", mock.Anything, existing).Return(nil)

	u, err := svc.EnsureAdmin(context.Background(), "Boss", "Boss@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}
