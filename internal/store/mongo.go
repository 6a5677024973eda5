package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/erazemk/vrt/internal/model"
)

// Collection names.
const (
	colUsers         = "users"
	colPlants        = "plants"
	colNotes         = "notes"
	colLocations     = "locations"
	colImages        = "images"
	colSettings      = "settings"
	colRevokedTokens = "revoked_tokens"
)

// Mongo implements Store on a MongoDB database. Document ids are ObjectID
// hex strings so they look the same as they do on the wire.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*Mongo)(nil)

// OpenMongo connects to uri, selects database name and creates indexes.
func OpenMongo(ctx context.Context, uri, name string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(name)}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		colPlants: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "title", Value: 1}}},
			{Keys: bson.D{{Key: "locationId", Value: 1}}},
		},
		colNotes: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
			{Keys: bson.D{{Key: "plantIds", Value: 1}}},
		},
		colLocations: {{Keys: bson.D{{Key: "userId", Value: 1}}}},
		colImages:    {{Keys: bson.D{{Key: "noteId", Value: 1}}}},
		colRevokedTokens: {{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		}},
	}
	for name, models := range indexes {
		if _, err := m.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
	}
	return nil
}

// Drop removes the whole database. Used by tests.
func (m *Mongo) Drop(ctx context.Context) error {
	return m.db.Drop(ctx)
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) col(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func newObjectID() string {
	return primitive.NewObjectID().Hex()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// findOne decodes the first match into v. It reports false when nothing
// matched.
func (m *Mongo) findOne(ctx context.Context, col string, filter, v any) (bool, error) {
	err := m.col(col).FindOne(ctx, filter).Decode(v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter any, sort bson.D) ([]T, error) {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Users

// CreateUser inserts a user. A taken username yields ErrConflict.
func (m *Mongo) CreateUser(ctx context.Context, username, passwordHash, role string) (*model.User, error) {
	t := now()
	u := &model.User{
		ID:           newObjectID(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    t,
		UpdatedAt:    t,
	}
	_, err := m.col(colUsers).InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("creating user %q: %w", username, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// GetUser returns a user by ID.
func (m *Mongo) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	ok, err := m.findOne(ctx, colUsers, bson.M{"_id": id}, &u)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetUserByUsername returns a user by username.
func (m *Mongo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	ok, err := m.findOne(ctx, colUsers, bson.M{"username": username}, &u)
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// ListUsers returns all users ordered by username.
func (m *Mongo) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := findAll[model.User](ctx, m.col(colUsers), bson.M{}, bson.D{{Key: "username", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// UpdateUser saves the user's username, role and password hash.
func (m *Mongo) UpdateUser(ctx context.Context, u *model.User) error {
	_, err := m.col(colUsers).UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{
		"username":     u.Username,
		"passwordHash": u.PasswordHash,
		"role":         u.Role,
		"updatedAt":    now(),
	}})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("updating user %q: %w", u.Username, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// DeleteUser removes a user. Fails with ErrConflict while the user still owns
// plants.
func (m *Mongo) DeleteUser(ctx context.Context, id string) error {
	n, err := m.col(colPlants).CountDocuments(ctx, bson.M{"userId": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("checking user plants: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("deleting user: %w", ErrConflict)
	}
	if _, err := m.col(colUsers).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// Plants

func (m *Mongo) checkLocation(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	n, err := m.col(colLocations).CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("checking location: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("unknown location %q: %w", id, ErrConflict)
	}
	return nil
}

// CreatePlant inserts a plant and returns the stored record.
func (m *Mongo) CreatePlant(ctx context.Context, p *model.Plant) (*model.Plant, error) {
	if err := m.checkLocation(ctx, p.LocationID); err != nil {
		return nil, fmt.Errorf("creating plant: %w", err)
	}
	created := *p
	created.ID = newObjectID()
	created.CreatedAt = now()
	created.UpdatedAt = created.CreatedAt
	if _, err := m.col(colPlants).InsertOne(ctx, &created); err != nil {
		return nil, fmt.Errorf("creating plant: %w", err)
	}
	return &created, nil
}

// GetPlant returns a plant by ID.
func (m *Mongo) GetPlant(ctx context.Context, id string) (*model.Plant, error) {
	var p model.Plant
	ok, err := m.findOne(ctx, colPlants, bson.M{"_id": id}, &p)
	if err != nil {
		return nil, fmt.Errorf("getting plant: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ListPlantsByUser returns a user's plants.
func (m *Mongo) ListPlantsByUser(ctx context.Context, userID string) ([]model.Plant, error) {
	plants, err := findAll[model.Plant](ctx, m.col(colPlants), bson.M{"userId": userID},
		bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("listing plants: %w", err)
	}
	return plants, nil
}

// UpdatePlant saves the plant's editable fields. Empty optional fields are
// unset.
func (m *Mongo) UpdatePlant(ctx context.Context, p *model.Plant) error {
	if err := m.checkLocation(ctx, p.LocationID); err != nil {
		return fmt.Errorf("updating plant: %w", err)
	}
	set := bson.M{
		"title":     p.Title,
		"price":     p.Price,
		"updatedAt": now(),
	}
	unset := bson.M{}
	optional := map[string]string{
		"locationId":    p.LocationID,
		"commonName":    p.CommonName,
		"botanicalName": p.BotanicalName,
		"description":   p.Description,
	}
	for k, v := range optional {
		if v == "" {
			unset[k] = ""
		} else {
			set[k] = v
		}
	}
	if p.PlantedOn.IsZero() {
		unset["plantedOn"] = ""
	} else {
		set["plantedOn"] = p.PlantedOn
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if _, err := m.col(colPlants).UpdateByID(ctx, p.ID, update); err != nil {
		return fmt.Errorf("updating plant: %w", err)
	}
	return nil
}

// DeletePlant removes a plant record. Notes are handled by the caller.
func (m *Mongo) DeletePlant(ctx context.Context, id string) error {
	if _, err := m.col(colPlants).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting plant: %w", err)
	}
	return nil
}

// Locations

// CreateLocation inserts a location and returns the stored record.
func (m *Mongo) CreateLocation(ctx context.Context, l *model.Location) (*model.Location, error) {
	created := *l
	created.ID = newObjectID()
	created.CreatedAt = now()
	created.UpdatedAt = created.CreatedAt
	if _, err := m.col(colLocations).InsertOne(ctx, &created); err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}
	return &created, nil
}

// GetLocation returns a location by ID.
func (m *Mongo) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	var l model.Location
	ok, err := m.findOne(ctx, colLocations, bson.M{"_id": id}, &l)
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// ListLocationsByUser returns a user's locations ordered by title.
func (m *Mongo) ListLocationsByUser(ctx context.Context, userID string) ([]model.Location, error) {
	locations, err := findAll[model.Location](ctx, m.col(colLocations), bson.M{"userId": userID},
		bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}})
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	return locations, nil
}

// UpdateLocation saves the location's title and description.
func (m *Mongo) UpdateLocation(ctx context.Context, l *model.Location) error {
	_, err := m.col(colLocations).UpdateByID(ctx, l.ID, bson.M{"$set": bson.M{
		"title":       l.Title,
		"description": l.Description,
		"updatedAt":   now(),
	}})
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	return nil
}

// DeleteLocation removes a location. Fails if plants are still placed there.
func (m *Mongo) DeleteLocation(ctx context.Context, id string) error {
	n, err := m.col(colPlants).CountDocuments(ctx, bson.M{"locationId": id})
	if err != nil {
		return fmt.Errorf("checking location plants: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("location still holds %d plants: %w", n, ErrConflict)
	}
	if _, err := m.col(colLocations).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}

// Tokens

// GetJWTSecret returns the signing secret, creating it on first use.
func (m *Mongo) GetJWTSecret(ctx context.Context) (string, error) {
	candidate, err := newSecret()
	if err != nil {
		return "", err
	}

	var doc struct {
		Value string `bson:"value"`
	}
	err = m.col(colSettings).FindOneAndUpdate(ctx,
		bson.M{"_id": "jwt_secret"},
		bson.M{"$setOnInsert": bson.M{"value": candidate}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return "", fmt.Errorf("loading jwt_secret: %w", err)
	}
	return doc.Value, nil
}

// RevokeToken adds a token's JTI to the revocation list. Entries expire
// through a TTL index.
func (m *Mongo) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := m.col(colRevokedTokens).UpdateByID(ctx, jti,
		bson.M{"$setOnInsert": bson.M{"expiresAt": expiresAt.UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func (m *Mongo) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := m.col(colRevokedTokens).CountDocuments(ctx, bson.M{"_id": jti}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return n > 0, nil
}
