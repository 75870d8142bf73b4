// Package mongostore keeps charging reservations, with full version history,
// in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/reservation"
)

const collectionReservations = "reservations"

// Config defines the MongoDB connection settings.
type Config struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type versionDoc struct {
	ReservationID string                    `bson:"reservation_id"`
	InsertedAt    time.Time                 `bson:"inserted_at"`
	Data          model.ChargingReservation `bson:"data"`
}

// ReservationStore implements reservation.Store on MongoDB. Every Upsert
// inserts a new version document; reads return the newest version.
type ReservationStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewReservationStore connects to MongoDB and verifies the connection.
func NewReservationStore(ctx context.Context, cfg Config) (*ReservationStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.User != "" {
		opts.SetAuth(options.Credential{
			Username:   cfg.User,
			Password:   cfg.Password,
			AuthSource: cfg.Database,
		})
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	return &ReservationStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(collectionReservations),
	}, nil
}

// Close disconnects the underlying client.
func (s *ReservationStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Get returns the latest version of the reservation.
func (s *ReservationStore) Get(ctx context.Context, id string) (*model.ChargingReservation, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "inserted_at", Value: -1}})
	var doc versionDoc
	err := s.coll.FindOne(ctx, bson.M{"reservation_id": id}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, reservation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: get %s: %w", id, err)
	}
	return &doc.Data, nil
}

// GetLatest returns the latest version of the reservation.
func (s *ReservationStore) GetLatest(ctx context.Context, id string) (*model.ChargingReservation, error) {
	return s.Get(ctx, id)
}

// Upsert appends a new version of the reservation.
func (s *ReservationStore) Upsert(ctx context.Context, r *model.ChargingReservation) error {
	_, err := s.coll.InsertOne(ctx, versionDoc{
		ReservationID: r.ID,
		InsertedAt:    time.Now(),
		Data:          *r,
	})
	if err != nil {
		return fmt.Errorf("mongostore: upsert %s: %w", r.ID, err)
	}
	return nil
}

// History returns all versions of the reservation, oldest first.
func (s *ReservationStore) History(ctx context.Context, id string) ([]model.ChargingReservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "inserted_at", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"reservation_id": id}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: history %s: %w", id, err)
	}
	defer cur.Close(ctx)
	var out []model.ChargingReservation
	for cur.Next(ctx) {
		var doc versionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongostore: decode: %w", err)
		}
		out = append(out, doc.Data)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongostore: history cursor: %w", err)
	}
	if len(out) == 0 {
		return nil, reservation.ErrNotFound
	}
	return out, nil
}

// List returns the latest version of every reservation in id order.
func (s *ReservationStore) List(ctx context.Context) ([]model.ChargingReservation, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "inserted_at", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$reservation_id"},
			{Key: "data", Value: bson.D{{Key: "$last", Value: "$data"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongostore: list: %w", err)
	}
	defer cur.Close(ctx)
	var out []model.ChargingReservation
	for cur.Next(ctx) {
		var doc struct {
			Data model.ChargingReservation `bson:"data"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongostore: decode: %w", err)
		}
		out = append(out, doc.Data)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongostore: list cursor: %w", err)
	}
	return out, nil
}
