// Package analytics mirrors a subset of the primary records into MongoDB.
// The mirror is advisory: every operation here catches its own failure, logs
// it, and returns an empty sentinel instead of an error. Callers must never
// let a gateway outcome decide the fate of a primary-store operation.
package analytics

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	CollectionScanAnalytics = "scan_analytics"
	CollectionMLPredictions = "ml_predictions"
	CollectionUsers         = "users"
	CollectionAdmin         = "admin"
	CollectionDrivers       = "drivers"
)

var collectionNames = []string{
	CollectionScanAnalytics,
	CollectionMLPredictions,
	CollectionUsers,
	CollectionAdmin,
	CollectionDrivers,
}

type logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// Gateway is the shared handle to the document store. It connects lazily on
// first use; a failed connect is retried on the next call rather than cached.
type Gateway struct {
	URI          string
	DatabaseName string
	Timeout      time.Duration
	Logger       logger

	mu     sync.Mutex
	client *mongo.Client
}

func NewGateway(uri string, databaseName string, timeout time.Duration, l logger) *Gateway {
	return &Gateway{
		URI:          uri,
		DatabaseName: databaseName,
		Timeout:      timeout,
		Logger:       l,
	}
}

func (g *Gateway) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.Timeout)
}

// database returns the shared database handle, connecting first if needed.
// Concurrent first calls are serialized by the mutex so only one connection
// is ever created.
func (g *Gateway) database(ctx context.Context) (*mongo.Database, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client.Database(g.DatabaseName), nil
	}

	opCtx, cancel := g.opContext(ctx)
	defer cancel()

	client, err := mongo.Connect(opCtx, options.Client().ApplyURI(g.URI))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(opCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	g.Logger.Infof("analytics: connected to document store at %s", g.URI)

	db := client.Database(g.DatabaseName)
	g.initializeCollections(ctx, db)

	g.client = client
	return db, nil
}

// initializeCollections seeds each empty collection with a placeholder
// document and declares the index set. Failures here are logged and swallowed;
// they must not abort the connection.
func (g *Gateway) initializeCollections(ctx context.Context, db *mongo.Database) {
	opCtx, cancel := context.WithTimeout(ctx, g.Timeout*time.Duration(len(collectionNames)+1))
	defer cancel()

	for _, name := range collectionNames {
		coll := db.Collection(name)
		count, err := coll.CountDocuments(opCtx, bson.M{})
		if err != nil {
			g.Logger.Warnf("analytics: error counting documents in collection: %s, err: %v", name, err)
			continue
		}
		if count == 0 {
			_, err = coll.InsertOne(opCtx, bson.M{
				"initialized": true,
				"created_at":  time.Now().UTC(),
				"description": "Initial document for " + name + " collection",
			})
			if err != nil {
				g.Logger.Warnf("analytics: error seeding collection: %s, err: %v", name, err)
				continue
			}
			g.Logger.Infof("analytics: initialized collection: %s", name)
		}
	}

	indexes := map[string][]mongo.IndexModel{
		CollectionScanAnalytics: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "scan_id", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		CollectionMLPredictions: {
			{Keys: bson.D{{Key: "timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "confidence", Value: 1}}},
		},
		CollectionUsers: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		CollectionAdmin: {
			{Keys: bson.D{{Key: "admin_id", Value: 1}}},
			{Keys: bson.D{{Key: "action_type", Value: 1}}},
			{Keys: bson.D{{Key: "timestamp", Value: 1}}},
		},
		CollectionDrivers: {
			{Keys: bson.D{{Key: "driver_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "vehicle_number", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(opCtx, models); err != nil {
			g.Logger.Warnf("analytics: error creating indexes for collection: %s, err: %v", name, err)
		}
	}
}

// IsConnected is a live probe: it round-trips a ping to the store on every
// call instead of trusting a cached flag.
func (g *Gateway) IsConnected(ctx context.Context) bool {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()
	if client == nil {
		if _, err := g.database(ctx); err != nil {
			return false
		}
		return true
	}

	opCtx, cancel := g.opContext(ctx)
	defer cancel()
	return client.Ping(opCtx, readpref.Primary()) == nil
}

// Save appends a document to the collection, stamping it with saved_at.
// Returns the inserted ObjectID hex, or "" when the write failed.
func (g *Gateway) Save(ctx context.Context, collection string, doc bson.M) string {
	db, err := g.database(ctx)
	if err != nil {
		g.Logger.Errorf("analytics: Save: error connecting to document store, collection: %s, err: %v", collection, err)
		return ""
	}

	opCtx, cancel := g.opContext(ctx)
	defer cancel()

	doc["saved_at"] = time.Now().UTC()
	r, err := db.Collection(collection).InsertOne(opCtx, doc)
	if err != nil {
		g.Logger.Errorf("analytics: Save: error inserting document into collection: %s, err: %v", collection, err)
		return ""
	}
	id, ok := r.InsertedID.(primitive.ObjectID)
	if !ok {
		return ""
	}
	g.Logger.Debugf("analytics: Save: inserted document into collection: %s, ID: %s", collection, id.Hex())
	return id.Hex()
}

// UpsertByKey saves the document keyed on a natural identifier: the existing
// document with the same key is replaced, otherwise a new one is inserted.
// Returns the document's ObjectID hex, or "" on failure.
func (g *Gateway) UpsertByKey(ctx context.Context, collection string, key string, value any, doc bson.M) string {
	db, err := g.database(ctx)
	if err != nil {
		g.Logger.Errorf("analytics: UpsertByKey: error connecting to document store, collection: %s, err: %v", collection, err)
		return ""
	}

	opCtx, cancel := g.opContext(ctx)
	defer cancel()

	doc[key] = value
	doc["saved_at"] = time.Now().UTC()
	var updated bson.M
	err = db.Collection(collection).FindOneAndUpdate(
		opCtx,
		bson.M{key: value},
		bson.M{"$set": doc},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		g.Logger.Errorf("analytics: UpsertByKey: error upserting document with %s: %v in collection: %s, err: %v",
			key, value, collection, err)
		return ""
	}
	id, ok := updated["_id"].(primitive.ObjectID)
	if !ok {
		return ""
	}
	g.Logger.Debugf("analytics: UpsertByKey: upserted document with %s: %v in collection: %s, ID: %s",
		key, value, collection, id.Hex())
	return id.Hex()
}

// Get fetches the document matching key=value, or nil when absent or on
// failure.
func (g *Gateway) Get(ctx context.Context, collection string, key string, value any) bson.M {
	db, err := g.database(ctx)
	if err != nil {
		g.Logger.Errorf("analytics: Get: error connecting to document store, collection: %s, err: %v", collection, err)
		return nil
	}

	opCtx, cancel := g.opContext(ctx)
	defer cancel()

	var doc bson.M
	err = db.Collection(collection).FindOne(opCtx, bson.M{key: value}).Decode(&doc)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			g.Logger.Errorf("analytics: Get: error finding document with %s: %v in collection: %s, err: %v",
				key, value, collection, err)
		}
		return nil
	}
	return doc
}

// ListAll returns the documents matching filter, newest first. Returns nil
// on failure.
func (g *Gateway) ListAll(ctx context.Context, collection string, filter bson.M) []bson.M {
	db, err := g.database(ctx)
	if err != nil {
		g.Logger.Errorf("analytics: ListAll: error connecting to document store, collection: %s, err: %v", collection, err)
		return nil
	}

	opCtx, cancel := g.opContext(ctx)
	defer cancel()

	cur, err := db.Collection(collection).Find(opCtx, filter,
		options.Find().SetSort(bson.D{{Key: "saved_at", Value: -1}}))
	if err != nil {
		g.Logger.Errorf("analytics: ListAll: error finding documents in collection: %s, err: %v", collection, err)
		return nil
	}
	var docs []bson.M
	if err = cur.All(opCtx, &docs); err != nil {
		g.Logger.Errorf("analytics: ListAll: error decoding documents from collection: %s, err: %v", collection, err)
		return nil
	}
	return docs
}

// DBStats summarizes the state of the document store.
type DBStats struct {
	DatabaseName     string           `json:"database_name"`
	Collections      int              `json:"collections"`
	CollectionNames  []string         `json:"collection_names"`
	CollectionCounts map[string]int64 `json:"collection_counts"`
	TotalDocuments   int64            `json:"total_documents"`
	DataSizeMB       float64          `json:"db_size_mb"`
	StorageSizeMB    float64          `json:"storage_size_mb"`
}

// Stats returns collection counts and storage sizes, or nil on failure.
func (g *Gateway) Stats(ctx context.Context) *DBStats {
	db, err := g.database(ctx)
	if err != nil {
		g.Logger.Errorf("analytics: Stats: error connecting to document store, err: %v", err)
		return nil
	}

	opCtx, cancel := g.opContext(ctx)
	defer cancel()

	var dbStats struct {
		DataSize    float64 `bson:"dataSize"`
		StorageSize float64 `bson:"storageSize"`
	}
	if err = db.RunCommand(opCtx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&dbStats); err != nil {
		g.Logger.Errorf("analytics: Stats: error running dbStats, err: %v", err)
		return nil
	}

	names, err := db.ListCollectionNames(opCtx, bson.M{})
	if err != nil {
		g.Logger.Errorf("analytics: Stats: error listing collections, err: %v", err)
		return nil
	}

	counts := map[string]int64{}
	var total int64
	for _, name := range names {
		count, err := db.Collection(name).CountDocuments(opCtx, bson.M{})
		if err != nil {
			g.Logger.Warnf("analytics: Stats: error counting documents in collection: %s, err: %v", name, err)
			continue
		}
		counts[name] = count
		total += count
	}

	const mb = 1024 * 1024
	return &DBStats{
		DatabaseName:     g.DatabaseName,
		Collections:      len(names),
		CollectionNames:  names,
		CollectionCounts: counts,
		TotalDocuments:   total,
		DataSizeMB:       dbStats.DataSize / mb,
		StorageSizeMB:    dbStats.StorageSize / mb,
	}
}

// Close disconnects the shared client, if one was ever created.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Disconnect(ctx)
	g.client = nil
	return err
}
