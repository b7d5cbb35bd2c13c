package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// complaintColumns are the scalar columns SaveComplaint may change.
// created_at and citizen_id are never rewritten.
var complaintColumns = []string{
	"title", "description", "category_id", "category",
	"longitude", "latitude", "address", "images",
	"status", "assigned_to", "department", "priority",
	"upvotes", "upvote_count", "resolution_time", "resolved_at",
	"transaction_hash", "block_number", "blockchain_timestamp",
	"updated_at",
}

type PostgresStore struct {
	DB *gorm.DB
}

// OpenPostgres connects with the given DSN. TranslateError makes unique
// violations come back as gorm.ErrDuplicatedKey.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// Migrate створює або оновлює таблиці для всіх моделей.
func (s *PostgresStore) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Complaint{},
		&models.StatusUpdate{},
		&models.Comment{},
	)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NotFound(what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %w", what, errs.ErrDuplicate)
	default:
		return err
	}
}

func orderedHistory(db *gorm.DB) *gorm.DB {
	return db.Order("timestamp ASC, id ASC")
}

func orderedComments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// ---------- complaints ----------

// CreateComplaint зберігає скаргу разом з першим записом історії.
func (s *PostgresStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		slog.Error("create complaint failed", "title", c.Title, "err", err)
		return translate(err, "complaint")
	}
	return nil
}

func (s *PostgresStore) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("History", orderedHistory).
		Preload("Comments", orderedComments).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "complaint")
	}
	return &c, nil
}

func (s *PostgresStore) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(c).Select(complaintColumns).Omit(clause.Associations).Updates(c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.NotFound("complaint")
		}

		// Історія та коментарі тільки доповнюються: нові записи мають ID == 0.
		for i := range c.History {
			if c.History[i].ID != 0 {
				continue
			}
			c.History[i].ComplaintID = c.ID
			if err := tx.Create(&c.History[i]).Error; err != nil {
				return err
			}
		}
		for i := range c.Comments {
			if c.Comments[i].ID != 0 {
				continue
			}
			c.Comments[i].ComplaintID = c.ID
			if err := tx.Create(&c.Comments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int64, error) {
	f = normalizeFilter(f)

	q := s.DB.WithContext(ctx).Model(&models.Complaint{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ? OR category_id = ?", f.Category, f.Category)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.CitizenID != "" {
		q = q.Where("citizen_id = ?", f.CitizenID)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ? OR address ILIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch f.Sort {
	case "oldest":
		q = q.Order("created_at ASC")
	case "upvotes":
		q = q.Order("upvote_count DESC").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var out []models.Complaint
	err := q.Preload("History", orderedHistory).
		Preload("Comments", orderedComments).
		Offset(f.Offset()).Limit(f.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresStore) AllComplaints(ctx context.Context) ([]models.Complaint, error) {
	var out []models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("History", orderedHistory).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *PostgresStore) MapComplaints(ctx context.Context, b *models.Bounds, limit int) ([]models.Complaint, error) {
	q := s.DB.WithContext(ctx).Model(&models.Complaint{})
	if b != nil {
		q = q.Where("latitude BETWEEN ? AND ?", b.MinLat, b.MaxLat).
			Where("longitude BETWEEN ? AND ?", b.MinLng, b.MaxLng)
	}
	var out []models.Complaint
	err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// CountComplaintsInCategory matches on the category id or on the stored name
// so complaints filed before a rename still count.
func (s *PostgresStore) CountComplaintsInCategory(ctx context.Context, id, name string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where("category_id = ? OR category = ?", id, name).Count(&n).Error
	return n, err
}

// ---------- users ----------

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.DB.WithContext(ctx).Create(u).Error, "user")
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context, roles ...models.Role) ([]models.User, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if len(roles) > 0 {
		q = q.Where("role IN ?", roles)
	}
	var out []models.User
	err := q.Find(&out).Error
	return out, err
}

// SaveUser зберігає користувача в PostgreSQL
func (s *PostgresStore) SaveUser(ctx context.Context, u *models.User) error {
	return translate(s.DB.WithContext(ctx).Save(u).Error, "user")
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("user")
	}
	return nil
}

// ---------- categories ----------

func (s *PostgresStore) CreateCategory(ctx context.Context, c *models.Category) error {
	return translate(s.DB.WithContext(ctx).Create(c).Error, "category")
}

func (s *PostgresStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var c models.Category
	if err := s.DB.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, "category")
	}
	return &c, nil
}

func (s *PostgresStore) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	if err := s.DB.WithContext(ctx).First(&c, "name = ?", name).Error; err != nil {
		return nil, translate(err, "category")
	}
	return &c, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	q := s.DB.WithContext(ctx).Order("sort_order ASC, name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Category
	err := q.Find(&out).Error
	return out, err
}

func (s *PostgresStore) SaveCategory(ctx context.Context, c *models.Category) error {
	return translate(s.DB.WithContext(ctx).Save(c).Error, "category")
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Delete(&models.Category{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("category")
	}
	return nil
}

var _ Storage = (*PostgresStore)(nil)
