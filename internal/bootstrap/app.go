package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"seochat/internal/ai"
	"seochat/internal/app"
	"seochat/internal/cache"
	"seochat/internal/config"
	"seochat/internal/model"
	"seochat/internal/pkg/pdfextract"
	"seochat/internal/pkg/webtext"
	mysqlClient "seochat/internal/platform/mysql"
	"seochat/internal/platform/objectstore"
	postgresClient "seochat/internal/platform/postgres"
	rabbitmqClient "seochat/internal/platform/rabbitmq"
	redisClient "seochat/internal/platform/redis"
	"seochat/internal/repository"
	"seochat/internal/repository/memstore"
	"seochat/internal/worker"
)

type Services struct {
	Identity  *app.IdentityService
	Sessions  *app.SessionService
	Tenants   *app.TenantService
	Documents *app.DocumentService
	Chats     *app.ChatService
}

// Deps are the collaborators behind the services. Nil optional fields
// disable the matching feature.
type Deps struct {
	Scraper   app.TextExtractor
	PDF       app.PDFTextExtractor
	LLM       app.Completer
	Blobs     app.BlobStore
	Publisher app.TranscriptPublisher
	Throttle  app.LoginThrottle
}

type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB         *gorm.DB
	Redis      *redis.Client
	MQConn     *amqp.Connection
	ChatWorker *worker.ChatPersistWorker

	Stores    app.Stores
	Services  Services
	StartedAt time.Time

	publisher *rabbitmqClient.TranscriptPublisher
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}

	db, err := OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if db != nil {
		if err := Migrate(db); err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Stores = SQLStores(db)
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		a.Stores = MemoryStores(memstore.New())
	}

	if a.Redis, err = redisClient.New(ctx, cfg.Redis); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL); err != nil {
		_ = a.Close()
		return nil, err
	}

	deps := Deps{
		Scraper: webtext.New(time.Duration(cfg.Scraper.TimeoutSeconds)*time.Second, cfg.Scraper.UserAgent),
		PDF:     pdfextract.New(),
		LLM: ai.NewClient(ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		}),
	}
	if a.Redis != nil {
		deps.Throttle = cache.NewLoginThrottle(a.Redis, cfg.Auth.LoginMaxAttempts, time.Duration(cfg.Auth.LoginWindowSeconds)*time.Second)
	} else {
		logger.Warn("redis not configured; login throttling disabled")
	}
	if a.MQConn != nil {
		a.publisher = rabbitmqClient.NewTranscriptPublisher(a.MQConn, cfg.RabbitMQ.ChatPersistQueue)
		deps.Publisher = a.publisher
		a.ChatWorker = worker.NewChatPersistWorker(a.MQConn, a.Stores.Chats, cfg.RabbitMQ.ChatPersistQueue, logger)
	}
	if cfg.Storage.Backend == config.StorageS3 {
		blobs, err := objectstore.New(ctx, cfg.Storage)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		deps.Blobs = blobs
	}

	a.Services = NewServices(cfg, a.Stores, deps, logger)
	return a, nil
}

// NewServices wires the services over stores; tests call it with a memstore.
func NewServices(cfg *config.Config, stores app.Stores, deps Deps, logger *zap.Logger) Services {
	tenants := app.NewTenantService(stores.Clients, deps.Scraper, logger)
	identity := app.NewIdentityService(stores.Users, tenants, cfg.Widget.ScriptURL, logger)
	ttl := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour

	return Services{
		Identity:  identity,
		Sessions:  app.NewSessionService(stores.Sessions, identity, deps.Throttle, ttl, logger),
		Tenants:   tenants,
		Documents: app.NewDocumentService(stores.Documents, stores.Clients, deps.PDF, deps.Blobs, cfg.Storage.Prefix, logger),
		Chats:     app.NewChatService(stores.Chats, stores.Clients, stores.Documents, deps.LLM, deps.Publisher, logger),
	}
}

// OpenDatabase returns nil for the memory driver.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysqlClient.New(ctx, cfg.MySQLDSN())
	case config.DriverPostgres:
		return postgresClient.New(ctx, cfg.PostgresDSN)
	case config.DriverMemory:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

func SQLStores(db *gorm.DB) app.Stores {
	return app.Stores{
		Users:     repository.NewUserRepository(db),
		Sessions:  repository.NewSessionRepository(db),
		Clients:   repository.NewClientRepository(db),
		Documents: repository.NewDocumentRepository(db),
		Chats:     repository.NewChatRepository(db),
	}
}

func MemoryStores(s *memstore.Store) app.Stores {
	return app.Stores{
		Users:     s.Users(),
		Sessions:  s.Sessions(),
		Clients:   s.Clients(),
		Documents: s.Documents(),
		Chats:     s.Chats(),
	}
}

// StartWorker begins draining the transcript queue; a no-op without RabbitMQ.
func (a *App) StartWorker(ctx context.Context) error {
	if a.ChatWorker == nil {
		return nil
	}
	if err := a.ChatWorker.Start(ctx); err != nil {
		return fmt.Errorf("start chat worker failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.ChatWorker != nil {
		a.ChatWorker.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
