package server

import (
	"context"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.mongodb.org/mongo-driver/bson"

	"safacycle/internal/analytics"
	"safacycle/internal/client"
	"safacycle/internal/database"
)

type Server struct {
	DB            database.Database
	Gateway       gateway
	Replicator    replicator
	Client        client.Client
	Cache         *redis.Client
	Logger        logger
	AuthSecretKey jwk.Key
	StatsCacheTTL time.Duration
}

type logger interface {
	Trace(v ...any)
	Debug(v ...any)
	Info(v ...any)
	Warn(v ...any)
	Error(v ...any)
	Tracef(format string, v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// gateway is the injected document-store mirror. Every method is
// fallible-but-non-throwing: failures surface as empty sentinels, never as
// errors, so no handler outcome can depend on the mirror being reachable.
type gateway interface {
	IsConnected(ctx context.Context) bool
	Save(ctx context.Context, collection string, doc bson.M) string
	UpsertByKey(ctx context.Context, collection string, key string, value any, doc bson.M) string
	Get(ctx context.Context, collection string, key string, value any) bson.M
	ListAll(ctx context.Context, collection string, filter bson.M) []bson.M
	Stats(ctx context.Context) *analytics.DBStats
}

type replicator interface {
	Enqueue(e analytics.ScanEvent) bool
}
