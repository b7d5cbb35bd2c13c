// Package complaint implements the complaint lifecycle: submission, status
// changes, assignment, upvotes and comments.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/events"
	"civicdesk/backend/internal/localization"
	"civicdesk/backend/internal/metrics"
	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/storage"
)

// CacheInvalidator drops cached reports after a complaint write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage
	Rules   Rules
	Events  events.Publisher
	Reports CacheInvalidator
	Notes   func(key string, args map[string]string) string
	Now     func() time.Time
}

// NewService creates a new complaint service.
func NewService(s storage.Storage, rules Rules) *Service {
	return &Service{
		Storage: s,
		Rules:   rules,
		Events:  events.Nop{},
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// LocalizedRules builds Rules whose default notes come from l in lang.
func LocalizedRules(l *localization.Localizer, lang string, allowAny bool) Rules {
	return Rules{
		AllowAny: allowAny,
		DefaultNote: func(s models.Status) string {
			return l.Format(lang, "note.status_updated", map[string]string{"status": string(s)})
		},
	}
}

// CreateInput is a citizen's submission.
type CreateInput struct {
	Title       string
	Description string
	// CategoryID or Category (name); the ID wins when both are set.
	CategoryID string
	Category   string
	Location   models.Location
	Images     []string
}

func (s *Service) resolveCategory(ctx context.Context, in CreateInput) (*models.Category, error) {
	var (
		cat *models.Category
		err error
	)
	switch {
	case in.CategoryID != "":
		cat, err = s.Storage.GetCategory(ctx, in.CategoryID)
	case strings.TrimSpace(in.Category) != "":
		cat, err = s.Storage.GetCategoryByName(ctx, strings.TrimSpace(in.Category))
	default:
		return nil, errs.Invalid("category", "category is required")
	}
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.Invalid("category", "unknown category")
	}
	if err != nil {
		return nil, err
	}
	if !cat.IsActive {
		return nil, errs.Invalid("category", "category %q is not active", cat.Name)
	}
	return cat, nil
}

func validateCreate(in *CreateInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Title == "":
		return errs.Invalid("title", "title is required")
	case len([]rune(in.Title)) > config.MaxTitleLength:
		return errs.Invalid("title", "title must be at most %d characters", config.MaxTitleLength)
	case in.Description == "":
		return errs.Invalid("description", "description is required")
	case len([]rune(in.Description)) > config.MaxDescriptionLen:
		return errs.Invalid("description", "description must be at most %d characters", config.MaxDescriptionLen)
	case !in.Location.Valid():
		return errs.Invalid("location", "coordinates must be a valid [longitude, latitude] pair")
	case len(in.Images) > config.MaxImages:
		return errs.Invalid("images", "at most %d images are allowed", config.MaxImages)
	}
	return nil
}

// Create submits a complaint on behalf of citizen.
func (s *Service) Create(ctx context.Context, citizen *models.User, in CreateInput) (*models.Complaint, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}
	cat, err := s.resolveCategory(ctx, in)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	c := &models.Complaint{
		Title:       in.Title,
		Description: in.Description,
		CategoryID:  cat.ID,
		Category:    cat.Name,
		Location:    in.Location,
		Images:      append([]string{}, in.Images...),
		Status:      models.StatusPending,
		CitizenID:   citizen.ID,
		Priority:    models.PriorityMedium,
		Upvotes:     []string{},
		Comments:    []models.Comment{},
		History: []models.StatusUpdate{{
			Status:    models.StatusPending,
			UpdatedBy: citizen.ID,
			Note:      s.note("note.submitted", nil, "Complaint submitted"),
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	stampProvenance(c, now)

	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	metrics.ComplaintsCreated.WithLabelValues(c.Category).Inc()
	slog.Info("complaint created", "complaint_id", c.ID, "category", c.Category, "citizen_id", citizen.ID)

	s.afterWrite(ctx, models.NewComplaintEvent(models.EventComplaintCreated, c, citizen.ID, now))
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Complaint, error) {
	return s.Storage.GetComplaint(ctx, id)
}

// List returns one page of complaints and the total match count.
func (s *Service) List(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, errs.Invalid("status", "unknown status %q", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, 0, errs.Invalid("priority", "unknown priority %q", f.Priority)
	}
	switch f.Sort {
	case "", "newest", "oldest", "upvotes":
	default:
		return nil, 0, errs.Invalid("sort", "sort must be newest, oldest or upvotes")
	}
	return s.Storage.ListComplaints(ctx, f)
}

func (s *Service) ListMine(ctx context.Context, citizenID string, f models.ComplaintFilter) ([]models.Complaint, int64, error) {
	f.CitizenID = citizenID
	return s.List(ctx, f)
}

func (s *Service) ListAssigned(ctx context.Context, officialID string, f models.ComplaintFilter) ([]models.Complaint, int64, error) {
	f.AssignedTo = officialID
	return s.List(ctx, f)
}

// UpdateStatus applies a status change made by a staff member.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.Status, actor *models.User, note string) (*models.Complaint, error) {
	if !actor.Role.IsStaff() {
		return nil, errs.ErrForbidden
	}
	if !status.Valid() {
		return nil, errs.Invalid("status", "unknown status %q", status)
	}
	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := c.Status
	now := s.Now()
	if err := s.Rules.ApplyStatus(c, status, actor.ID, note, now); err != nil {
		return nil, err
	}
	if err := s.Storage.SaveComplaint(ctx, c); err != nil {
		return nil, fmt.Errorf("save complaint %s: %w", id, err)
	}
	metrics.StatusTransitions.WithLabelValues(string(prev), string(status)).Inc()

	ev := models.NewComplaintEvent(models.EventComplaintStatus, c, actor.ID, now)
	ev.PrevStatus = prev
	ev.Note = c.LastUpdate().Note
	s.afterWrite(ctx, ev)
	return c, nil
}

// AssignInput names the official handling a complaint.
type AssignInput struct {
	AssigneeID string
	Department string
	Priority   models.Priority
	Note       string
}

// Assign is admin-only.
func (s *Service) Assign(ctx context.Context, id string, in AssignInput, actor *models.User) (*models.Complaint, error) {
	if actor.Role != models.RoleAdmin {
		return nil, errs.ErrForbidden
	}
	if strings.TrimSpace(in.AssigneeID) == "" {
		return nil, errs.Invalid("assignedTo", "assignee is required")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return nil, errs.Invalid("priority", "unknown priority %q", in.Priority)
	}
	assignee, err := s.Storage.GetUserByID(ctx, in.AssigneeID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.Invalid("assignedTo", "assignee not found")
	}
	if err != nil {
		return nil, err
	}

	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := c.Status
	now := s.Now()
	err = s.Rules.Assign(c, Assignment{
		Assignee:   assignee,
		Department: in.Department,
		Priority:   in.Priority,
		ActorID:    actor.ID,
		Note:       in.Note,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := s.Storage.SaveComplaint(ctx, c); err != nil {
		return nil, fmt.Errorf("save complaint %s: %w", id, err)
	}
	if prev != c.Status {
		metrics.StatusTransitions.WithLabelValues(string(prev), string(c.Status)).Inc()
	}

	ev := models.NewComplaintEvent(models.EventComplaintAssigned, c, actor.ID, now)
	ev.PrevStatus = prev
	ev.Note = s.note("note.assigned", map[string]string{"name": assignee.Name}, "Assigned to "+assignee.Name)
	s.afterWrite(ctx, ev)
	return c, nil
}

// UpvoteResult is the state after a toggle.
type UpvoteResult struct {
	Upvotes    int  `json:"upvotes"`
	HasUpvoted bool `json:"hasUpvoted"`
}

func (s *Service) ToggleUpvote(ctx context.Context, id, userID string) (UpvoteResult, error) {
	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return UpvoteResult{}, err
	}
	has := ToggleUpvote(c, userID)
	c.UpdatedAt = s.Now()
	if err := s.Storage.SaveComplaint(ctx, c); err != nil {
		return UpvoteResult{}, fmt.Errorf("save complaint %s: %w", id, err)
	}

	s.afterWrite(ctx, models.NewComplaintEvent(models.EventComplaintUpvoted, c, userID, c.UpdatedAt))
	return UpvoteResult{Upvotes: c.UpvoteCount, HasUpvoted: has}, nil
}

func (s *Service) AddComment(ctx context.Context, id string, author *models.User, text string) (*models.Comment, error) {
	c, err := s.Storage.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	comment, err := AddComment(c, author, text, now)
	if err != nil {
		return nil, err
	}
	if err := s.Storage.SaveComplaint(ctx, c); err != nil {
		return nil, fmt.Errorf("save complaint %s: %w", id, err)
	}

	ev := models.NewComplaintEvent(models.EventComplaintCommented, c, author.ID, now)
	ev.Note = comment.Text
	s.afterWrite(ctx, ev)
	return comment, nil
}

func (s *Service) afterWrite(ctx context.Context, ev models.ComplaintEvent) {
	if s.Reports != nil {
		s.Reports.Invalidate(ctx)
	}
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		slog.Warn("complaint event not fully delivered", "type", ev.Type, "complaint_id", ev.ComplaintID, "err", err)
	}
}

func (s *Service) note(key string, args map[string]string, fallback string) string {
	if s.Notes == nil {
		return fallback
	}
	return s.Notes(key, args)
}
