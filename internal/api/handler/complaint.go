package handler

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"civicdesk/backend/internal/api/resp"
	"civicdesk/backend/internal/complaint"
	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

type createComplaintRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	CategoryID  string           `json:"categoryId"`
	Location    *models.Location `json:"location"`
	Images      []string         `json:"images"`
}

type listQuery struct {
	Status   string `form:"status"`
	Category string `form:"category"`
	Priority string `form:"priority"`
	Search   string `form:"search"`
	Sort     string `form:"sort"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

func (q listQuery) filter() models.ComplaintFilter {
	return models.ComplaintFilter{
		Status:   models.Status(q.Status),
		Category: q.Category,
		Priority: models.Priority(q.Priority),
		Search:   q.Search,
		Sort:     q.Sort,
		Page:     q.Page,
		Limit:    q.Limit,
	}
}

type statusRequest struct {
	Status models.Status `json:"status" binding:"required,complaint_status"`
	Note   string        `json:"note"`
}

type assignRequest struct {
	AssignedTo string          `json:"assignedTo" binding:"required"`
	Department string          `json:"department"`
	Priority   models.Priority `json:"priority" binding:"omitempty,priority"`
	Note       string          `json:"note"`
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) bindList(c *gin.Context) (models.ComplaintFilter, bool) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		resp.BadRequest(c, "invalid query parameters")
		return models.ComplaintFilter{}, false
	}
	return q.filter(), true
}

func listed(c *gin.Context, f models.ComplaintFilter, list []models.Complaint, total int64) {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}
	if list == nil {
		list = []models.Complaint{}
	}
	resp.Page(c, list, page, limit, total)
}

func (h *Handler) ListComplaints(c *gin.Context) {
	f, ok := h.bindList(c)
	if !ok {
		return
	}
	list, total, err := h.Complaints.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	listed(c, f, list, total)
}

func (h *Handler) MyComplaints(c *gin.Context) {
	f, ok := h.bindList(c)
	if !ok {
		return
	}
	list, total, err := h.Complaints.ListMine(c.Request.Context(), currentUser(c).ID, f)
	if err != nil {
		fail(c, err)
		return
	}
	listed(c, f, list, total)
}

func (h *Handler) AssignedComplaints(c *gin.Context) {
	f, ok := h.bindList(c)
	if !ok {
		return
	}
	list, total, err := h.Complaints.ListAssigned(c.Request.Context(), currentUser(c).ID, f)
	if err != nil {
		fail(c, err)
		return
	}
	listed(c, f, list, total)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	cm, err := h.Complaints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, cm)
}

// CreateComplaint accepts JSON or multipart/form-data with up to five files
// under "images". JSON images may only reference files already stored under
// /uploads.
func (h *Handler) CreateComplaint(c *gin.Context) {
	var (
		in    complaint.CreateInput
		saved []string
		err   error
	)
	if c.ContentType() == "multipart/form-data" {
		in, saved, err = h.readMultipart(c)
	} else {
		in, err = h.readJSON(c)
	}
	if err != nil {
		fail(c, err)
		return
	}

	cm, err := h.Complaints.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.removeUploads(saved)
		fail(c, err)
		return
	}
	resp.Created(c, cm)
}

func (h *Handler) readJSON(c *gin.Context) (complaint.CreateInput, error) {
	var req createComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return complaint.CreateInput{}, errs.Invalid("", "invalid complaint payload")
	}
	if req.Location == nil {
		return complaint.CreateInput{}, errs.Invalid("location", "location is required")
	}
	if len(req.Images) > config.MaxImages {
		return complaint.CreateInput{}, errs.Invalid("images", "at most %d images are allowed", config.MaxImages)
	}
	for _, u := range req.Images {
		if err := h.checkUploadRef(u); err != nil {
			return complaint.CreateInput{}, err
		}
	}
	return complaint.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		CategoryID:  req.CategoryID,
		Location:    *req.Location,
		Images:      req.Images,
	}, nil
}

// checkUploadRef accepts only "/uploads/<file>" references to an existing
// image in the upload directory.
func (h *Handler) checkUploadRef(u string) error {
	name, ok := strings.CutPrefix(u, "/uploads/")
	if !ok || name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return errs.Invalid("images", "image %q must reference an uploaded file", u)
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
		return errs.Invalid("images", "unsupported image type %q", filepath.Ext(name))
	}
	fi, err := os.Stat(filepath.Join(h.UploadDir, name))
	if err != nil || !fi.Mode().IsRegular() {
		return errs.Invalid("images", "image %q does not exist", u)
	}
	return nil
}

// readMultipart returns the parsed input plus the URLs of the files it
// stored, which the caller owns on failure.
func (h *Handler) readMultipart(c *gin.Context) (complaint.CreateInput, []string, error) {
	in := complaint.CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		CategoryID:  c.PostForm("categoryId"),
	}

	loc, err := formLocation(c)
	if err != nil {
		return in, nil, err
	}
	in.Location = loc

	form, err := c.MultipartForm()
	if err != nil {
		return in, nil, errs.Invalid("images", "malformed multipart form")
	}
	files := form.File["images"]
	if len(files) > config.MaxImages {
		return in, nil, errs.Invalid("images", "at most %d images are allowed", config.MaxImages)
	}
	var saved []string
	for _, fh := range files {
		url, err := h.saveImage(c, fh)
		if err != nil {
			h.removeUploads(saved)
			return in, nil, err
		}
		saved = append(saved, url)
	}
	in.Images = saved
	return in, saved, nil
}

// formLocation reads either a JSON "location" field or flat
// latitude/longitude/address fields.
func formLocation(c *gin.Context) (models.Location, error) {
	var loc models.Location
	if raw := c.PostForm("location"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return loc, errs.Invalid("location", "location must be a GeoJSON point")
		}
		return loc, nil
	}
	lat, errLat := strconv.ParseFloat(c.PostForm("latitude"), 64)
	lng, errLng := strconv.ParseFloat(c.PostForm("longitude"), 64)
	if errLat != nil || errLng != nil {
		return loc, errs.Invalid("location", "latitude and longitude are required")
	}
	return models.Location{Latitude: lat, Longitude: lng, Address: c.PostForm("address")}, nil
}

func (h *Handler) saveImage(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExtensions[ext] {
		return "", errs.Invalid("images", "unsupported image type %q", ext)
	}
	if limit := int64(h.MaxUploadMB) << 20; limit > 0 && fh.Size > limit {
		return "", errs.Invalid("images", "image %s is larger than %d MB", fh.Filename, h.MaxUploadMB)
	}
	name := uuid.New().String() + ext
	if err := c.SaveUploadedFile(fh, filepath.Join(h.UploadDir, name)); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return "/uploads/" + name, nil
}

func (h *Handler) removeUploads(urls []string) {
	for _, u := range urls {
		if name, ok := strings.CutPrefix(u, "/uploads/"); ok {
			_ = os.Remove(filepath.Join(h.UploadDir, filepath.Base(name)))
		}
	}
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, "status must be one of pending, acknowledged, in_progress, resolved, rejected")
		return
	}
	note := strings.TrimSpace(req.Note)
	if note == "" && h.Localizer != nil {
		lang := h.Localizer.PickLang(c.GetHeader("Accept-Language"))
		note = h.Localizer.Format(lang, "note.status_updated", map[string]string{"status": string(req.Status)})
	}
	cm, err := h.Complaints.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, currentUser(c), note)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, cm)
}

func (h *Handler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, "assignedTo is required and priority must be low, medium, high or urgent")
		return
	}
	cm, err := h.Complaints.Assign(c.Request.Context(), c.Param("id"), complaint.AssignInput{
		AssigneeID: req.AssignedTo,
		Department: req.Department,
		Priority:   req.Priority,
		Note:       req.Note,
	}, currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, cm)
}

func (h *Handler) Upvote(c *gin.Context) {
	res, err := h.Complaints.ToggleUpvote(c.Request.Context(), c.Param("id"), currentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	resp.OK(c, res)
}

func (h *Handler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, "text is required")
		return
	}
	cm, err := h.Complaints.AddComment(c.Request.Context(), c.Param("id"), currentUser(c), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	resp.Created(c, cm)
}
