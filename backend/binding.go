package backend

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"cityconnect-be/config"
)

// Binding is the process-wide handle set to the managed backend. It is
// opened once at start-up and shared read-only afterwards.
type Binding struct {
	Identities IdentityStore
	Issues     IssueStore
	Users      UserStore
	Settings   SettingsStore
	Objects    ObjectStore
	Feed       ChangeFeed
	Sessions   SessionStore

	// Redis is nil unless REDIS_ADDRESS is configured.
	Redis *redis.Client

	mongo *mongo.Client
}

// NewMemoryBinding returns a binding whose every handle lives in process.
func NewMemoryBinding() *Binding {
	store := NewMemoryStore()
	return &Binding{
		Identities: store,
		Issues:     store,
		Users:      store.Users(),
		Settings:   store.Settings(),
		Objects:    store.Objects(),
		Feed:       NewMemoryFeed(),
		Sessions:   NewMemorySessions(),
	}
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Binding, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory backend; data is lost on restart")
		return NewMemoryBinding(), nil
	}

	client, db, err := config.ConnectDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to MongoDB", zap.String("database", cfg.ProjectID), zap.Bool("emulator", cfg.UseEmulator))

	if err := EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	objects, err := NewGridFSObjects(db, cfg.StorageBucket)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	b := &Binding{
		Identities: NewMongoIdentities(db),
		Issues:     NewMongoIssues(db),
		Users:      NewMongoUsers(db),
		Settings:   NewMongoSettings(db),
		Objects:    objects,
		mongo:      client,
	}

	rdb, err := config.ConnectRedis(ctx, cfg)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if rdb == nil {
		logger.Warn("REDIS_ADDRESS not set; realtime updates and sessions are local to this process")
		b.Feed = NewMemoryFeed()
		b.Sessions = NewMemorySessions()
		return b, nil
	}
	logger.Info("connected to Redis", zap.String("address", cfg.RedisAddress))
	b.Redis = rdb
	b.Feed = NewRedisFeed(rdb, cfg.MessagingSenderID)
	b.Sessions = NewRedisSessions(rdb, cfg.MessagingSenderID)
	return b, nil
}

// Close releases the network handles.
func (b *Binding) Close(ctx context.Context) error {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.mongo != nil {
		return b.mongo.Disconnect(ctx)
	}
	return nil
}
