package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Complaint is one civic issue reported by a citizen.
type Complaint struct {
	ID          string   `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	Title       string   `gorm:"type:varchar(200);not null" json:"title" bson:"title"`
	Description string   `gorm:"type:text;not null" json:"description" bson:"description"`
	CategoryID  string   `gorm:"type:varchar(36);index" json:"categoryId" bson:"categoryId"`
	Category    string   `gorm:"type:varchar(100);index" json:"category" bson:"category"`
	Location    Location `gorm:"embedded" json:"location" bson:"location"`
	// Images holds upload paths, at most config.MaxImages of them.
	Images pq.StringArray `gorm:"type:text[]" json:"images" bson:"images"`

	Status     Status   `gorm:"type:varchar(32);index;not null;default:pending" json:"status" bson:"status"`
	CitizenID  string   `gorm:"type:varchar(36);index;not null" json:"citizenId" bson:"citizenId"`
	AssignedTo *string  `gorm:"type:varchar(36);index" json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	Department string   `gorm:"type:varchar(120)" json:"department,omitempty" bson:"department,omitempty"`
	Priority   Priority `gorm:"type:varchar(16);index;not null;default:medium" json:"priority" bson:"priority"`

	History     []StatusUpdate `gorm:"foreignKey:ComplaintID;constraint:OnDelete:CASCADE" json:"statusUpdates" bson:"statusUpdates"`
	Upvotes     pq.StringArray `gorm:"type:text[]" json:"upvotes" bson:"upvotes"`
	UpvoteCount int            `gorm:"index;not null;default:0" json:"upvoteCount" bson:"upvoteCount"`
	Comments    []Comment      `gorm:"foreignKey:ComplaintID;constraint:OnDelete:CASCADE" json:"comments" bson:"comments"`

	// ResolutionTime is hours from creation to the first resolution.
	ResolutionTime *int       `json:"resolutionTime,omitempty" bson:"resolutionTime,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`

	// Display-only provenance placeholders. Not verifiable.
	TransactionHash     string    `gorm:"type:varchar(66)" json:"transactionHash" bson:"transactionHash"`
	BlockNumber         int64     `json:"blockNumber" bson:"blockNumber"`
	BlockchainTimestamp time.Time `json:"blockchainTimestamp" bson:"blockchainTimestamp"`

	CreatedAt time.Time `gorm:"index;not null" json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// StatusUpdate is one entry of a complaint's audit trail. Entries are never
// edited or removed once appended.
type StatusUpdate struct {
	ID          uint      `gorm:"primaryKey" json:"-" bson:"-"`
	ComplaintID string    `gorm:"type:varchar(36);index;not null" json:"-" bson:"-"`
	Status      Status    `gorm:"type:varchar(32);not null" json:"status" bson:"status"`
	UpdatedBy   string    `gorm:"type:varchar(36);not null" json:"updatedBy" bson:"updatedBy"`
	Note        string    `gorm:"type:text" json:"note" bson:"note"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp" bson:"timestamp"`
}

// Comment is a note posted on a complaint by any authenticated user.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"-" bson:"-"`
	ComplaintID string    `gorm:"type:varchar(36);index;not null" json:"-" bson:"-"`
	AuthorID    string    `gorm:"type:varchar(36);not null" json:"author" bson:"author"`
	AuthorName  string    `gorm:"type:varchar(120)" json:"authorName,omitempty" bson:"authorName,omitempty"`
	Role        Role      `gorm:"type:varchar(16);not null" json:"role" bson:"role"`
	Text        string    `gorm:"type:text;not null" json:"text" bson:"text"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// HasUpvoted reports whether userID is in the upvote set.
func (c *Complaint) HasUpvoted(userID string) bool {
	for _, id := range c.Upvotes {
		if id == userID {
			return true
		}
	}
	return false
}

// LastUpdate returns the most recent history entry, or nil.
func (c *Complaint) LastUpdate() *StatusUpdate {
	if len(c.History) == 0 {
		return nil
	}
	return &c.History[len(c.History)-1]
}

// ComplaintFilter narrows a complaint listing. Zero values mean "any".
type ComplaintFilter struct {
	Status     Status
	Category   string
	Priority   Priority
	CitizenID  string
	AssignedTo string
	Search     string
	Sort       string // newest (default), oldest, upvotes
	Page       int
	Limit      int
}

// Offset converts Page/Limit into a row offset.
func (f ComplaintFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Bounds is a lat/lng box. Both ranges are applied independently.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

func (b Bounds) Contains(l Location) bool {
	return l.Latitude >= b.MinLat && l.Latitude <= b.MaxLat &&
		l.Longitude >= b.MinLng && l.Longitude <= b.MaxLng
}
