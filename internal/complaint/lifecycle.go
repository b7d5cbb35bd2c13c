package complaint

import (
	"fmt"
	"math"
	"strings"
	"time"

	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"
)

// transitions lists the statuses reachable from each status. Staying in the
// same status is always allowed and only adds a history note.
var transitions = map[models.Status][]models.Status{
	models.StatusPending:      {models.StatusAcknowledged, models.StatusInProgress, models.StatusResolved, models.StatusRejected},
	models.StatusAcknowledged: {models.StatusInProgress, models.StatusResolved, models.StatusRejected},
	models.StatusInProgress:   {models.StatusAcknowledged, models.StatusResolved, models.StatusRejected},
	models.StatusResolved:     {models.StatusInProgress},
	models.StatusRejected:     {models.StatusPending},
}

// Allowed returns the statuses reachable from s.
func Allowed(s models.Status) []models.Status {
	return append([]models.Status(nil), transitions[s]...)
}

// Rules applies lifecycle changes to a loaded complaint. The methods only
// mutate the value passed in; persisting it is the caller's job.
type Rules struct {
	// AllowAny disables the transition table.
	AllowAny bool
	// DefaultNote produces the history note when the caller gives none.
	DefaultNote func(models.Status) string
}

func (r Rules) CanTransition(from, to models.Status) bool {
	if r.AllowAny || from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (r Rules) note(status models.Status, note string) string {
	if note = strings.TrimSpace(note); note != "" {
		return note
	}
	if r.DefaultNote != nil {
		return r.DefaultNote(status)
	}
	return "Status updated to " + string(status)
}

// ApplyStatus moves c to status, appends a history entry and stamps the
// resolution time on the first move to resolved.
func (r Rules) ApplyStatus(c *models.Complaint, status models.Status, actorID, note string, now time.Time) error {
	if !status.Valid() {
		return errs.Invalid("status", "unknown status %q", status)
	}
	if !r.CanTransition(c.Status, status) {
		return &errs.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("%s: %s -> %s", errs.ErrInvalidTransition, c.Status, status),
			Err:     errs.ErrInvalidTransition,
		}
	}

	c.Status = status
	c.History = append(c.History, models.StatusUpdate{
		Status:    status,
		UpdatedBy: actorID,
		Note:      r.note(status, note),
		Timestamp: now,
	})
	c.UpdatedAt = now

	if status == models.StatusResolved && c.ResolutionTime == nil {
		hours := ResolutionHours(c.CreatedAt, now)
		resolvedAt := now
		c.ResolutionTime = &hours
		c.ResolvedAt = &resolvedAt
	}
	return nil
}

// ResolutionHours is (resolvedAt - createdAt) in whole hours, rounded.
func ResolutionHours(createdAt, resolvedAt time.Time) int {
	return int(math.Round(resolvedAt.Sub(createdAt).Hours()))
}

// Assignment is the input of Assign.
type Assignment struct {
	Assignee   *models.User
	Department string
	Priority   models.Priority
	ActorID    string
	Note       string
}

// Assign sets the handler of c. A pending complaint becomes acknowledged
// with one history entry; any other status is left alone.
func (r Rules) Assign(c *models.Complaint, a Assignment, now time.Time) error {
	if a.Assignee == nil {
		return errs.Invalid("assignedTo", "assignee is required")
	}
	if !a.Assignee.Role.IsStaff() {
		return errs.Invalid("assignedTo", "assignee must be an official or admin")
	}
	if a.Priority != "" && !a.Priority.Valid() {
		return errs.Invalid("priority", "unknown priority %q", a.Priority)
	}

	id := a.Assignee.ID
	c.AssignedTo = &id
	c.Department = strings.TrimSpace(a.Department)
	if a.Priority != "" {
		c.Priority = a.Priority
	}
	if c.Priority == "" {
		c.Priority = models.PriorityMedium
	}
	c.UpdatedAt = now

	if c.Status == models.StatusPending {
		return r.ApplyStatus(c, models.StatusAcknowledged, a.ActorID, a.Note, now)
	}
	return nil
}

// ToggleUpvote flips userID's membership in the upvote set and returns
// whether the user is now an upvoter.
func ToggleUpvote(c *models.Complaint, userID string) bool {
	for i, id := range c.Upvotes {
		if id == userID {
			c.Upvotes = append(c.Upvotes[:i:i], c.Upvotes[i+1:]...)
			c.UpvoteCount = len(c.Upvotes)
			return false
		}
	}
	c.Upvotes = append(c.Upvotes, userID)
	c.UpvoteCount = len(c.Upvotes)
	return true
}

// AddComment appends a trimmed comment by author.
func AddComment(c *models.Complaint, author *models.User, text string, now time.Time) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.Invalid("text", "comment text is required")
	}
	if len([]rune(text)) > config.MaxCommentLength {
		return nil, errs.Invalid("text", "comment must be at most %d characters", config.MaxCommentLength)
	}
	c.Comments = append(c.Comments, models.Comment{
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Role:       author.Role,
		Text:       text,
		CreatedAt:  now,
	})
	c.UpdatedAt = now
	return &c.Comments[len(c.Comments)-1], nil
}
