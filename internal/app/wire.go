package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/alanyoungcy/ghostodds/internal/blob/s3"
	"github.com/alanyoungcy/ghostodds/internal/cache/redis"
	"github.com/alanyoungcy/ghostodds/internal/config"
	"github.com/alanyoungcy/ghostodds/internal/crypto"
	"github.com/alanyoungcy/ghostodds/internal/domain"
	"github.com/alanyoungcy/ghostodds/internal/engine"
	"github.com/alanyoungcy/ghostodds/internal/ledger"
	"github.com/alanyoungcy/ghostodds/internal/notify"
	"github.com/alanyoungcy/ghostodds/internal/oracle"
	"github.com/alanyoungcy/ghostodds/internal/store/memory"
	"github.com/alanyoungcy/ghostodds/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	PlatformStore domain.PlatformStore
	MarketStore   domain.MarketStore
	PositionStore domain.PositionStore
	EventStore    domain.EventStore

	// Ledger
	Ledger domain.TokenLedger

	// Atomic scopes each engine operation's writes to one unit of work.
	Atomic domain.Atomic

	// Signer holds the operator key. Set whenever a key is configured;
	// always set in server mode.
	Signer *crypto.Signer

	// Cache-layer collaborators; nil in dev mode.
	MarketCache domain.MarketCache
	LockManager domain.LockManager
	EventBus    domain.EventBus
	RateLimiter domain.RateLimiter

	// Oracle
	Prices domain.PriceSource

	// Blob storage; nil unless archiving is enabled.
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver

	// Engine
	Engine *engine.Engine

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources. Dev mode wires in-memory
// adapters; server mode wires PostgreSQL, Redis, and (when archiving is
// enabled) S3.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if cfg.Signer.PrivateKey != "" || cfg.Signer.EncryptedKeyPath != "" {
		signer, err := crypto.LoadSigner(crypto.KeyConfig{
			RawPrivateKey:    cfg.Signer.PrivateKey,
			EncryptedKeyPath: cfg.Signer.EncryptedKeyPath,
			KeyPassword:      cfg.Signer.KeyPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: operator key: %w", err)
		}
		deps.Signer = signer
	}

	if strings.ToLower(cfg.Mode) == "dev" {
		platformStore := memory.NewPlatformStore()
		marketStore := memory.NewMarketStore()
		positionStore := memory.NewPositionStore()
		led := ledger.New()

		deps.PlatformStore = platformStore
		deps.MarketStore = marketStore
		deps.PositionStore = positionStore
		deps.EventStore = memory.NewEventStore()
		deps.LockManager = memory.NewLockManager()
		deps.Ledger = led
		deps.Atomic = memory.NewAtomic(platformStore, marketStore, positionStore, led)
		deps.Prices = oracle.NewStaticSource()
	} else {
		// --- PostgreSQL ---
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.PlatformStore = postgres.NewPlatformStore(pool)
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.EventStore = postgres.NewEventStore(pool)
		deps.Ledger = postgres.NewTokenLedger(pool)
		deps.Atomic = postgres.NewAtomic(pool)

		// --- Redis ---
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.EventBus = redis.NewEventBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)

		// --- Oracle ---
		deps.Prices = oracle.NewHermesClient(cfg.Oracle.HermesURL)

		// --- S3 blob storage ---
		if cfg.Archive.Enabled {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}

			deps.BlobWriter = s3blob.NewWriter(s3Client)
			retention := time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour
			deps.Archiver = s3blob.NewArchiver(deps.EventStore, deps.BlobWriter, retention, logger)
		}
	}

	// The collateral mint must exist before the first market is created.
	err := deps.Ledger.CreateMint(ctx, cfg.Platform.CollateralMint, 6, "platform")
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: collateral mint: %w", err)
	}

	// --- Engine ---
	deps.Engine = engine.New(engine.Deps{
		Platform:       deps.PlatformStore,
		Markets:        deps.MarketStore,
		Positions:      deps.PositionStore,
		Events:         deps.EventStore,
		Ledger:         deps.Ledger,
		Prices:         deps.Prices,
		Locks:          deps.LockManager,
		Bus:            deps.EventBus,
		Cache:          deps.MarketCache,
		Atomic:         deps.Atomic,
		CollateralMint: cfg.Platform.CollateralMint,
		Logger:         logger,
	})

	// Establish the platform record from the operator identity so markets can
	// be created without a manual init call.
	if deps.Signer != nil {
		if err := bootstrapPlatform(ctx, deps.Engine, deps.Signer, cfg.Platform, logger); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: platform bootstrap: %w", err)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// bootstrapPlatform initializes the platform record with the operator key's
// address as authority and the configured fee. When platform.authority_address
// is set it must match the operator key, which catches a key/config mix-up at
// startup instead of on the first rejected request. An already initialized
// platform is left untouched.
func bootstrapPlatform(ctx context.Context, eng *engine.Engine, signer *crypto.Signer, cfg config.PlatformConfig, logger *slog.Logger) error {
	authority := signer.Address()
	if cfg.AuthorityAddress != "" {
		want := common.HexToAddress(cfg.AuthorityAddress)
		if want != authority {
			return fmt.Errorf("operator key controls %s, but platform.authority_address is %s",
				authority.Hex(), want.Hex())
		}
	}

	_, err := eng.InitializePlatform(ctx, authority, uint16(cfg.FeeBps))
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			logger.InfoContext(ctx, "platform already initialized",
				slog.String("operator", authority.Hex()),
			)
			return nil
		}
		return err
	}
	return nil
}
