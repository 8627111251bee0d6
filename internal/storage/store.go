// Package storage persists categories, topics, and events in MongoDB.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gamima/eventforge/internal/models"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = mongo.ErrNoDocuments

// Store wraps the MongoDB connection and collections.
type Store struct {
	client     *mongo.Client
	db         *mongo.Database
	categories *mongo.Collection
	topics     *mongo.Collection
	events     *mongo.Collection
}

// NewStore connects to MongoDB, verifies the connection, and ensures
// indexes.
func NewStore(ctx context.Context, uri, dbName, eventCollection string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:     client,
		db:         db,
		categories: db.Collection("categories"),
		topics:     db.Collection("topics"),
		events:     db.Collection(eventCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	log.Info().Str("database", dbName).Msg("Connected to MongoDB")
	return s, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.events.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "fingerprint", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = s.topics.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "category_id", Value: 1}},
	})
	return err
}

// Upsert writes the record keyed by its fingerprint. A new fingerprint
// inserts; an existing one refreshes the mutable fields in place, so
// repeated runs converge on one document per question. Returns the
// stored document's ID.
func (s *Store) Upsert(ctx context.Context, record *models.EventRecord) (string, error) {
	now := time.Now().UTC()

	insertOnly := bson.M{
		"question":    record.Question,
		"kind":        record.Kind,
		"rules":       record.Rules,
		"category_id": record.CategoryID,
		"topic_id":    record.TopicID,
		"fingerprint": record.Fingerprint,
		"created_at":  now,
	}
	if record.ParentFingerprint != "" {
		insertOnly["parent_fingerprint"] = record.ParentFingerprint
	}

	filter := bson.M{"fingerprint": record.Fingerprint}
	update := bson.M{
		"$set": bson.M{
			"options":     record.Options,
			"description": record.Description,
			"image_ref":   record.ImageRef,
			"end_date":    record.EndDate,
			"updated_at":  now,
		},
		"$setOnInsert": insertOnly,
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored models.EventRecord
	err := s.events.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent insert won the race on the unique index; retry
		// as a plain update against the existing document.
		err = s.events.FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&stored)
	}
	if err != nil {
		return "", fmt.Errorf("failed to upsert event: %w", err)
	}

	return stored.ID.Hex(), nil
}

// FindByFingerprint fetches the stored event for a fingerprint, or
// ErrNotFound.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*models.EventRecord, error) {
	var record models.EventRecord
	err := s.events.FindOne(ctx, bson.M{"fingerprint": fingerprint}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return &record, nil
}

// ListCategories returns all authored categories.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	cursor, err := s.categories.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

// ListTopics returns the topics under a category.
func (s *Store) ListTopics(ctx context.Context, categoryID primitive.ObjectID) ([]models.Topic, error) {
	cursor, err := s.topics.Find(ctx, bson.M{"category_id": categoryID})
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer cursor.Close(ctx)

	var topics []models.Topic
	if err := cursor.All(ctx, &topics); err != nil {
		return nil, fmt.Errorf("failed to decode topics: %w", err)
	}
	return topics, nil
}

// SeedCategories inserts any default categories missing by slug and
// returns how many were created.
func (s *Store) SeedCategories(ctx context.Context, categories []models.Category) (int, error) {
	created := 0
	for _, c := range categories {
		res, err := s.categories.UpdateOne(ctx,
			bson.M{"slug": c.Slug},
			bson.M{"$setOnInsert": bson.M{"slug": c.Slug, "name": c.Name}},
			options.Update().SetUpsert(true))
		if err != nil {
			return created, fmt.Errorf("failed to seed category %s: %w", c.Slug, err)
		}
		if res.UpsertedCount > 0 {
			created++
		}
	}
	return created, nil
}

// AddTopic inserts a topic under a category, reusing an existing topic
// with the same name.
func (s *Store) AddTopic(ctx context.Context, categoryID primitive.ObjectID, name string) error {
	_, err := s.topics.UpdateOne(ctx,
		bson.M{"category_id": categoryID, "name": name},
		bson.M{"$setOnInsert": bson.M{"category_id": categoryID, "name": name}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to add topic %s: %w", name, err)
	}
	return nil
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	count, err := s.events.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// RemoveDuplicateQuestions deletes events sharing a question text,
// compared case-insensitively across all topics, keeping the oldest
// document of each group. Returns how many were removed. The unique
// fingerprint index only guards one topic; the same question filed
// under two topics is caught here.
func (s *Store) RemoveDuplicateQuestions(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$toLower", Value: "$question"}}},
			{Key: "ids", Value: bson.D{{Key: "$push", Value: "$_id"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "count", Value: bson.D{{Key: "$gt", Value: 1}}}}}},
	}

	cursor, err := s.events.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to find duplicates: %w", err)
	}
	defer cursor.Close(ctx)

	var removed int64
	for cursor.Next(ctx) {
		var group struct {
			IDs []primitive.ObjectID `bson:"ids"`
		}
		if err := cursor.Decode(&group); err != nil {
			return removed, fmt.Errorf("failed to decode duplicate group: %w", err)
		}
		if len(group.IDs) < 2 {
			continue
		}
		res, err := s.events.DeleteMany(ctx, bson.M{
			"_id": bson.M{"$in": group.IDs[1:]},
		})
		if err != nil {
			return removed, fmt.Errorf("failed to delete duplicates: %w", err)
		}
		removed += res.DeletedCount
	}

	return removed, cursor.Err()
}
