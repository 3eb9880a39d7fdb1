package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/cache"
	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type snapshotDocument struct {
	Key       string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// SnapshotRepo stores serialized canonical state in MongoDB. It satisfies
// cache.Store and is started and stopped through the service lifecycle.
type SnapshotRepo struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	logger     aqm.Logger
	config     *aqm.Config
}

func NewSnapshotRepo(config *aqm.Config, logger aqm.Logger) *SnapshotRepo {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &SnapshotRepo{
		logger: logger,
		config: config,
	}
}

func (r *SnapshotRepo) Start(ctx context.Context) error {
	mongoURL, _ := r.config.GetString("db.mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}

	dbName, _ := r.config.GetString("db.mongo.name")
	if dbName == "" {
		dbName = "comandas_display"
	}

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)
	r.collection = r.db.Collection("snapshots")

	r.logger.Infof("Connected to MongoDB: %s, database: %s, collection: snapshots", mongoURL, dbName)
	return nil
}

func (r *SnapshotRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (r *SnapshotRepo) Load(ctx context.Context, key string) ([]byte, error) {
	if r.collection == nil {
		return nil, errors.New("snapshot repo not started")
	}

	var doc snapshotDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("cannot find snapshot: %w", err)
	}
	return doc.Payload, nil
}

func (r *SnapshotRepo) Save(ctx context.Context, key string, payload []byte) error {
	if r.collection == nil {
		return errors.New("snapshot repo not started")
	}

	doc := snapshotDocument{
		Key:       key,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("cannot save snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, key string) error {
	if r.collection == nil {
		return errors.New("snapshot repo not started")
	}
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("cannot delete snapshot: %w", err)
	}
	return nil
}

var _ cache.Store = (*SnapshotRepo)(nil)
