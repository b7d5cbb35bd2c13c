package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"civicdesk/backend/internal/errs"
	"civicdesk/backend/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps each complaint as one document with its history,
// comments and upvotes embedded.
type MongoStore struct {
	client     *mongo.Client
	complaints *mongo.Collection
	users      *mongo.Collection
	categories *mongo.Collection
}

func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(database)
	return &MongoStore{
		client:     client,
		complaints: db.Collection("complaints"),
		users:      db.Collection("users"),
		categories: db.Collection("categories"),
	}, nil
}

// EnsureIndexes creates the unique and lookup indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	if _, err := s.categories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("categories index: %w", err)
	}
	_, err := s.complaints.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "citizenId", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("complaints index: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func translateMongo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errs.NotFound(what)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s %w", what, errs.ErrDuplicate)
	default:
		return err
	}
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// ---------- complaints ----------

func (s *MongoStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	c.ID = newID(c.ID)
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	_, err := s.complaints.InsertOne(ctx, c)
	return translateMongo(err, "complaint")
}

func (s *MongoStore) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.complaints.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translateMongo(err, "complaint")
	}
	return &c, nil
}

// SaveComplaint replaces the whole document. The embedded arrays already
// hold the appended entries.
func (s *MongoStore) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	res, err := s.complaints.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.NotFound("complaint")
	}
	return nil
}

func complaintQuery(f models.ComplaintFilter) bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Category != "" {
		q["$or"] = bson.A{bson.M{"category": f.Category}, bson.M{"categoryId": f.Category}}
	}
	if f.Priority != "" {
		q["priority"] = f.Priority
	}
	if f.CitizenID != "" {
		q["citizenId"] = f.CitizenID
	}
	if f.AssignedTo != "" {
		q["assignedTo"] = f.AssignedTo
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		search := bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"location.address": re},
		}
		if or, ok := q["$or"]; ok {
			q["$and"] = bson.A{bson.M{"$or": or}, bson.M{"$or": search}}
			delete(q, "$or")
		} else {
			q["$or"] = search
		}
	}
	return q
}

func complaintSort(sort string) bson.D {
	switch sort {
	case "oldest":
		return bson.D{{Key: "createdAt", Value: 1}}
	case "upvotes":
		return bson.D{{Key: "upvoteCount", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

func (s *MongoStore) ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, int64, error) {
	f = normalizeFilter(f)
	q := complaintQuery(f)

	total, err := s.complaints.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(complaintSort(f.Sort)).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))
	out, err := s.findComplaints(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *MongoStore) AllComplaints(ctx context.Context) ([]models.Complaint, error) {
	return s.findComplaints(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (s *MongoStore) MapComplaints(ctx context.Context, b *models.Bounds, limit int) ([]models.Complaint, error) {
	q := bson.M{}
	if b != nil {
		q["location.coordinates.1"] = bson.M{"$gte": b.MinLat, "$lte": b.MaxLat}
		q["location.coordinates.0"] = bson.M{"$gte": b.MinLng, "$lte": b.MaxLng}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"statusUpdates": 0, "comments": 0, "upvotes": 0})
	return s.findComplaints(ctx, q, opts)
}

func (s *MongoStore) findComplaints(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Complaint, error) {
	cur, err := s.complaints.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	out := []models.Complaint{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CountComplaintsInCategory(ctx context.Context, id, name string) (int64, error) {
	return s.complaints.CountDocuments(ctx, categoryRefQuery(id, name))
}

// categoryRefQuery matches complaints by category id or by the name stored
// at filing time, which survives a rename.
func categoryRefQuery(id, name string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"categoryId": id},
		bson.M{"category": name},
	}}
}

// ---------- users ----------

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	u.ID = newID(u.ID)
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.users.InsertOne(ctx, u)
	return translateMongo(err, "user")
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) findUser(ctx context.Context, q bson.M) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, q).Decode(&u); err != nil {
		return nil, translateMongo(err, "user")
	}
	return &u, nil
}

func (s *MongoStore) ListUsers(ctx context.Context, roles ...models.Role) ([]models.User, error) {
	q := bson.M{}
	if len(roles) > 0 {
		q["role"] = bson.M{"$in": roles}
	}
	cur, err := s.users.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) SaveUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.users.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return translateMongo(err, "user")
	}
	if res.MatchedCount == 0 {
		return errs.NotFound("user")
	}
	return nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.NotFound("user")
	}
	return nil
}

// ---------- categories ----------

func (s *MongoStore) CreateCategory(ctx context.Context, c *models.Category) error {
	c.ID = newID(c.ID)
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := s.categories.InsertOne(ctx, c)
	return translateMongo(err, "category")
}

func (s *MongoStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return s.findCategory(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	return s.findCategory(ctx, bson.M{"name": name})
}

func (s *MongoStore) findCategory(ctx context.Context, q bson.M) (*models.Category, error) {
	var c models.Category
	if err := s.categories.FindOne(ctx, q).Decode(&c); err != nil {
		return nil, translateMongo(err, "category")
	}
	return &c, nil
}

func (s *MongoStore) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	q := bson.M{}
	if activeOnly {
		q["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "sortOrder", Value: 1}, {Key: "name", Value: 1}})
	cur, err := s.categories.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	out := []models.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) SaveCategory(ctx context.Context, c *models.Category) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.categories.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return translateMongo(err, "category")
	}
	if res.MatchedCount == 0 {
		return errs.NotFound("category")
	}
	return nil
}

func (s *MongoStore) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.categories.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errs.NotFound("category")
	}
	return nil
}

var _ Storage = (*MongoStore)(nil)
