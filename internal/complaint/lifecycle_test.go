package complaint

import (
	"strings"
	"testing"
	"time"

	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

func newPending() *models.Complaint {
	return &models.Complaint{
		ID:        "c-1",
		Title:     "Leaking main",
		Category:  "Water Supply",
		Status:    models.StatusPending,
		CitizenID: "cit-1",
		Priority:  models.PriorityMedium,
		History: []models.StatusUpdate{
			{ID: 1, Status: models.StatusPending, UpdatedBy: "cit-1", Timestamp: t0},
		},
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func TestApplyStatus_ResolutionTimeSetOnce(t *testing.T) {
	c := newPending()
	r := Rules{}

	require.NoError(t, r.ApplyStatus(c, models.StatusResolved, "off-1", "Fixed", t0.Add(5*time.Hour+20*time.Minute)))
	require.NotNil(t, c.ResolutionTime)
	assert.Equal(t, 5, *c.ResolutionTime)
	assert.Equal(t, t0.Add(5*time.Hour+20*time.Minute), *c.ResolvedAt)
	assert.Equal(t, models.StatusResolved, c.Status)
	assert.Len(t, c.History, 2)
	assert.Equal(t, "Fixed", c.LastUpdate().Note)

	require.NoError(t, r.ApplyStatus(c, models.StatusResolved, "off-1", "", t0.Add(30*time.Hour)))
	assert.Equal(t, 5, *c.ResolutionTime)
	assert.Len(t, c.History, 3)
}

func TestApplyStatus_ReopenKeepsResolutionTime(t *testing.T) {
	c := newPending()
	r := Rules{}

	require.NoError(t, r.ApplyStatus(c, models.StatusResolved, "off-1", "", t0.Add(2*time.Hour)))
	require.NoError(t, r.ApplyStatus(c, models.StatusInProgress, "off-1", "reopened", t0.Add(3*time.Hour)))
	require.NoError(t, r.ApplyStatus(c, models.StatusResolved, "off-1", "", t0.Add(10*time.Hour)))
	assert.Equal(t, 2, *c.ResolutionTime)
}

func TestApplyStatus_DefaultNote(t *testing.T) {
	c := newPending()
	require.NoError(t, Rules{}.ApplyStatus(c, models.StatusAcknowledged, "off-1", "  ", t0))
	assert.Equal(t, "Status updated to acknowledged", c.LastUpdate().Note)

	r := Rules{DefaultNote: func(s models.Status) string { return "-> " + string(s) }}
	require.NoError(t, r.ApplyStatus(c, models.StatusInProgress, "off-1", "", t0))
	assert.Equal(t, "-> in_progress", c.LastUpdate().Note)
}

func TestApplyStatus_Validation(t *testing.T) {
	c := newPending()
	err := Rules{}.ApplyStatus(c, models.Status("closed"), "off-1", "", t0)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Len(t, c.History, 1)
}

func TestTransitionTable(t *testing.T) {
	strict := Rules{}
	tests := []struct {
		from, to models.Status
		ok       bool
	}{
		{models.StatusPending, models.StatusAcknowledged, true},
		{models.StatusPending, models.StatusResolved, true},
		{models.StatusAcknowledged, models.StatusPending, false},
		{models.StatusInProgress, models.StatusAcknowledged, true},
		{models.StatusResolved, models.StatusPending, false},
		{models.StatusResolved, models.StatusInProgress, true},
		{models.StatusRejected, models.StatusPending, true},
		{models.StatusRejected, models.StatusResolved, false},
		{models.StatusResolved, models.StatusResolved, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, strict.CanTransition(tt.from, tt.to))
		})
	}

	assert.True(t, Rules{AllowAny: true}.CanTransition(models.StatusResolved, models.StatusPending))
}

func TestApplyStatus_RejectedTransitionLeavesComplaint(t *testing.T) {
	c := newPending()
	c.Status = models.StatusResolved

	err := Rules{}.ApplyStatus(c, models.StatusPending, "off-1", "", t0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, models.StatusResolved, c.Status)
	assert.Len(t, c.History, 1)
}

func TestAllowedReturnsCopy(t *testing.T) {
	a := Allowed(models.StatusResolved)
	a[0] = models.StatusRejected
	assert.Equal(t, []models.Status{models.StatusInProgress}, Allowed(models.StatusResolved))
}

func TestAssign(t *testing.T) {
	official := &models.User{ID: "off-1", Name: "Olena", Role: models.RoleOfficial}

	t.Run("pending becomes acknowledged with one entry", func(t *testing.T) {
		c := newPending()
		err := Rules{}.Assign(c, Assignment{Assignee: official, Department: " Water ", Priority: models.PriorityHigh, ActorID: "adm-1"}, t0)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAcknowledged, c.Status)
		assert.Len(t, c.History, 2)
		assert.Equal(t, "off-1", *c.AssignedTo)
		assert.Equal(t, "Water", c.Department)
		assert.Equal(t, models.PriorityHigh, c.Priority)
	})

	t.Run("acknowledged adds no entry", func(t *testing.T) {
		c := newPending()
		c.Status = models.StatusAcknowledged
		err := Rules{}.Assign(c, Assignment{Assignee: official, ActorID: "adm-1"}, t0)
		require.NoError(t, err)
		assert.Len(t, c.History, 1)
		assert.Equal(t, models.PriorityMedium, c.Priority)
	})

	t.Run("citizen cannot be assignee", func(t *testing.T) {
		c := newPending()
		err := Rules{}.Assign(c, Assignment{Assignee: &models.User{ID: "cit-2", Role: models.RoleCitizen}}, t0)
		assert.True(t, errs.IsValidation(err))
		assert.Nil(t, c.AssignedTo)
	})

	t.Run("bad priority", func(t *testing.T) {
		c := newPending()
		err := Rules{}.Assign(c, Assignment{Assignee: official, Priority: "critical"}, t0)
		assert.True(t, errs.IsValidation(err))
	})
}

func TestToggleUpvote(t *testing.T) {
	c := newPending()

	assert.True(t, ToggleUpvote(c, "cit-2"))
	assert.True(t, ToggleUpvote(c, "cit-3"))
	assert.Equal(t, 2, c.UpvoteCount)
	assert.Len(t, c.Upvotes, 2)

	assert.False(t, ToggleUpvote(c, "cit-2"))
	assert.Equal(t, 1, c.UpvoteCount)
	assert.False(t, c.HasUpvoted("cit-2"))
	assert.True(t, c.HasUpvoted("cit-3"))

	// toggling twice restores the original state
	before := append([]string(nil), c.Upvotes...)
	ToggleUpvote(c, "cit-4")
	ToggleUpvote(c, "cit-4")
	assert.Equal(t, before, []string(c.Upvotes))
	assert.Equal(t, 1, c.UpvoteCount)
	assert.Len(t, c.History, 1)
}

func TestAddComment(t *testing.T) {
	author := &models.User{ID: "off-1", Name: "Olena", Role: models.RoleOfficial}

	c := newPending()
	cm, err := AddComment(c, author, "  crew dispatched  ", t0)
	require.NoError(t, err)
	assert.Equal(t, "crew dispatched", cm.Text)
	assert.Equal(t, models.RoleOfficial, cm.Role)
	assert.Len(t, c.Comments, 1)

	_, err = AddComment(c, author, "   ", t0)
	assert.True(t, errs.IsValidation(err))

	_, err = AddComment(c, author, strings.Repeat("a", 1001), t0)
	assert.True(t, errs.IsValidation(err))
	assert.Len(t, c.Comments, 1)
}

func TestStampProvenance(t *testing.T) {
	c := newPending()
	stampProvenance(c, t0)
	assert.Len(t, c.TransactionHash, 66)
	assert.True(t, strings.HasPrefix(c.TransactionHash, "0x"))
	assert.GreaterOrEqual(t, c.BlockNumber, int64(baseBlock))
	assert.Equal(t, t0, c.BlockchainTimestamp)
}
