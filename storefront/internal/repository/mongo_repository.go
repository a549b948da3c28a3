package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/marketplace/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	cartsCollection = "cart_states"

	// cartSchemaVersion is bumped whenever the stored shape changes. Older
	// documents are still readable, newer ones are refused.
	cartSchemaVersion = 1
)

type cartDocument struct {
	SessionID     string                     `bson:"session_id"`
	SchemaVersion int                        `bson:"schema_version"`
	Items         []domain.CartLineItem      `bson:"items"`
	Checkout      domain.CheckoutContactInfo `bson:"checkout"`
	CreatedAt     time.Time                  `bson:"created_at"`
	UpdatedAt     time.Time                  `bson:"updated_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection(cartsCollection)}
}

func (m *MongoRepository) Get(ctx context.Context, sessionID string) (domain.CartState, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.CartState{}, ErrCartNotFound
		}
		return domain.CartState{}, fmt.Errorf("failed to get cart state: %w", err)
	}
	if doc.SchemaVersion > cartSchemaVersion {
		return domain.CartState{}, fmt.Errorf("cart state schema version %d not supported", doc.SchemaVersion)
	}

	items := doc.Items
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return domain.CartState{Items: items, Checkout: doc.Checkout}, nil
}

func (m *MongoRepository) Save(ctx context.Context, sessionID string, state domain.CartState) error {
	now := time.Now().UTC()
	items := state.Items
	if items == nil {
		items = []domain.CartLineItem{}
	}

	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"schema_version": cartSchemaVersion,
			"items":          items,
			"checkout":       state.Checkout,
			"updated_at":     now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}

	_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save cart state: %w", err)
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
