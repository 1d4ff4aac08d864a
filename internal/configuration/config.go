package configuration

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"

	"safacycle/internal/logger"
)

type Config struct {
	ServerAddress        string
	PostgresURI          string
	MongoURI             string
	MongoDatabase        string
	MongoTimeout         time.Duration
	RedisAddress         string
	StatsCacheTTL        time.Duration
	ReplicationQueueSize int
	AuthSecretKey        jwk.Key
	FCMKey               string
	LogLevel             logger.Level
	LogToFile            bool
}

type tomlConfig struct {
	ServerAddress        string `toml:"server_address"`
	PostgresURI          string `toml:"postgres_uri"`
	MongoURI             string `toml:"mongo_uri"`
	MongoDatabase        string `toml:"mongo_database"`
	MongoTimeout         string `toml:"mongo_timeout"`
	RedisAddress         string `toml:"redis_address"`
	StatsCacheTTL        string `toml:"stats_cache_ttl"`
	ReplicationQueueSize int    `toml:"replication_queue_size"`
	AuthSecretKey        string `toml:"auth_secret_key"`
	FCMKey               string `toml:"fcm_key"`
	LogLevel             string `toml:"log_level"`
	LogToFile            bool   `toml:"log_to_file"`
}

func GetConfig(path string) (*Config, error) {
	var tc tomlConfig
	_, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode toml file with path: %s", path)
	}

	if tc.ServerAddress == "" {
		tc.ServerAddress = "localhost:8888"
	}

	if tc.PostgresURI == "" {
		return nil, errors.New("postgres_uri is not set")
	}

	if tc.MongoURI == "" {
		tc.MongoURI = "mongodb://localhost:27017"
	}
	if tc.MongoDatabase == "" {
		tc.MongoDatabase = "safacycle_db"
	}
	if tc.MongoTimeout == "" {
		tc.MongoTimeout = "5s"
	}
	mongoTimeout, err := time.ParseDuration(tc.MongoTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse mongo_timeout: %s", tc.MongoTimeout)
	}
	if mongoTimeout <= 0 {
		return nil, errors.Errorf("mongo_timeout must be positive, got: %v", mongoTimeout)
	}

	if tc.RedisAddress == "" {
		tc.RedisAddress = "localhost:6379"
	}
	if tc.StatsCacheTTL == "" {
		tc.StatsCacheTTL = "1m"
	}
	statsCacheTTL, err := time.ParseDuration(tc.StatsCacheTTL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse stats_cache_ttl: %s", tc.StatsCacheTTL)
	}

	if tc.ReplicationQueueSize <= 0 {
		tc.ReplicationQueueSize = 256
	}

	if tc.AuthSecretKey == "" {
		return nil, errors.New("auth_secret_key is not set")
	}
	authSecretKey, err := jwk.FromRaw([]byte(tc.AuthSecretKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create key from auth_secret_key")
	}

	if tc.LogLevel == "" {
		tc.LogLevel = "INFO"
	}
	logLevel, err := logger.ParseLevel(tc.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse log_level: %s", tc.LogLevel)
	}

	return &Config{
		ServerAddress:        tc.ServerAddress,
		PostgresURI:          tc.PostgresURI,
		MongoURI:             tc.MongoURI,
		MongoDatabase:        tc.MongoDatabase,
		MongoTimeout:         mongoTimeout,
		RedisAddress:         tc.RedisAddress,
		StatsCacheTTL:        statsCacheTTL,
		ReplicationQueueSize: tc.ReplicationQueueSize,
		AuthSecretKey:        authSecretKey,
		FCMKey:               tc.FCMKey,
		LogLevel:             logLevel,
		LogToFile:            tc.LogToFile,
	}, nil
}
