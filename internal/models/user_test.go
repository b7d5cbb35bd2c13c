package models_test

import (
	"civicdesk/backend/internal/models"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	// Arrange
	user := &models.User{
		Name:  "Olena",
		Email: "olena@example.com",
		Role:  models.RoleCitizen,
	}

	assert.Empty(t, user.ID, "User ID should be empty before BeforeCreate")

	// Act - GORM would call this automatically
	err := user.BeforeCreate(nil)

	// Assert
	assert.NoError(t, err)
	assert.NotEmpty(t, user.ID, "User ID must be populated after BeforeCreate")

	parsedUUID, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsedUUID)
}

// TestUserBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestUserBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Email: "x@example.com"}

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, user.ID, "BeforeCreate should preserve existing ID")
}

// TestUserBeforeCreate_MultipleUsers verifies unique UUIDs are generated for multiple users.
func TestUserBeforeCreate_MultipleUsers(t *testing.T) {
	users := []*models.User{
		{Email: "a@example.com", Role: models.RoleCitizen},
		{Email: "b@example.com", Role: models.RoleOfficial},
		{Email: "c@example.com", Role: models.RoleAdmin},
	}

	generatedIDs := make(map[string]bool)
	for _, user := range users {
		assert.NoError(t, user.BeforeCreate(nil))
		assert.NotContains(t, generatedIDs, user.ID, "Each user should have a unique ID")
		generatedIDs[user.ID] = true
	}

	assert.Equal(t, len(users), len(generatedIDs))
}

// TestUserStructTags verifies that struct tags are correctly defined for GORM, JSON and BSON.
func TestUserStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	idField, found := userType.FieldByName("ID")
	assert.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")
	assert.Equal(t, "_id", idField.Tag.Get("bson"))

	emailField, found := userType.FieldByName("Email")
	assert.True(t, found)
	assert.Contains(t, emailField.Tag.Get("gorm"), "uniqueIndex", "Email should have unique index")

	passwordField, found := userType.FieldByName("Password")
	assert.True(t, found)
	assert.Equal(t, "-", passwordField.Tag.Get("json"), "Password hash must never be serialized")
}

func TestRoleValid(t *testing.T) {
	tests := []struct {
		role  models.Role
		valid bool
		staff bool
	}{
		{models.RoleCitizen, true, false},
		{models.RoleOfficial, true, true},
		{models.RoleAdmin, true, true},
		{models.Role("superuser"), false, false},
		{models.Role(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.Valid())
			assert.Equal(t, tt.staff, tt.role.IsStaff())
		})
	}
}
