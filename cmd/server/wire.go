package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	attendancehandler "proofpass/internal/attendance/handler"
	"proofpass/internal/attendance/claim"
	"proofpass/internal/attendance/lifecycle"
	attendancemetrics "proofpass/internal/attendance/metrics"
	"proofpass/internal/attendance/models"
	"proofpass/internal/attendance/store"
	"proofpass/internal/attendance/verification"
	identityhandler "proofpass/internal/identity/handler"
	identityservice "proofpass/internal/identity/service"
	"proofpass/internal/issuer"
	"proofpass/internal/issuer/content"
	"proofpass/internal/issuer/ledger"
	issuermetrics "proofpass/internal/issuer/metrics"
	jwttoken "proofpass/internal/jwt_token"
	"proofpass/internal/platform/config"
	"proofpass/internal/platform/httpserver"
	"proofpass/internal/platform/metrics"
	"proofpass/internal/platform/postgres"
	"proofpass/internal/platform/redis"
	httptransport "proofpass/internal/transport/http"
	"proofpass/pkg/platform/audit"
	"proofpass/pkg/platform/audit/publisher"
	auditkafka "proofpass/pkg/platform/audit/store/kafka"
	auditmemory "proofpass/pkg/platform/audit/store/memory"
	auditpostgres "proofpass/pkg/platform/audit/store/postgres"
	"proofpass/pkg/platform/circuit"
	"proofpass/pkg/platform/middleware/ratelimit"
)

type app struct {
	Router  http.Handler
	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	checks := map[string]httptransport.HealthCheck{}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	// Storage
	var (
		repo store.Repository
		db   *sql.DB
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return fail(err)
		}
		repo = store.NewPostgres(db)
		checks["postgres"] = db.PingContext
		log.Info("using postgres repository")
	} else {
		repo = store.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory repository")
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	var universal goredis.UniversalClient
	if rdb != nil {
		universal = rdb.Client
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		checks["redis"] = rdb.Health
	}

	// Audit
	auditStore, err := buildAuditStore(ctx, cfg, db, log, a)
	if err != nil {
		return fail(err)
	}
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
	)
	a.closers = append(a.closers, auditPublisher.Close)

	// Credential issuer
	iss, err := buildIssuer(ctx, cfg, universal, log)
	if err != nil {
		return fail(err)
	}

	// Attendance
	defaultStatus, err := models.ParseAttendanceStatus(cfg.Attendance.DefaultStatus)
	if err != nil {
		return fail(err)
	}
	attendanceMetrics := attendancemetrics.New()
	events := lifecycle.New(repo, iss,
		lifecycle.WithDefaultStatus(defaultStatus),
		lifecycle.WithClearStartedAtOnClose(cfg.Attendance.ClearStartedAtOnClose),
		lifecycle.WithAuditPublisher(auditPublisher),
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(attendanceMetrics),
	)

	var locker claim.Locker = claim.NewKeyedLocker()
	if universal != nil {
		locker = claim.NewRedisLocker(universal, claim.WithLockTTL(claimLockTTL(cfg.Issuer.Timeout)))
	}
	claims := claim.New(repo, iss,
		claim.WithLocker(locker),
		claim.WithAuditPublisher(auditPublisher),
		claim.WithLogger(log),
		claim.WithMetrics(attendanceMetrics),
	)
	verifier := verification.New(repo,
		verification.WithLogger(log),
		verification.WithMetrics(attendanceMetrics),
	)

	// Identity
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Issuer.Name, cfg.Auth.TokenTTL)
	validator := jwttoken.NewJWTServiceAdapter(tokens)
	identity := identityservice.New(repo, tokens, iss,
		identityservice.WithAuditPublisher(auditPublisher),
		identityservice.WithLogger(log),
	)

	// HTTP
	httpMetrics := metrics.New()
	limiter, err := ratelimit.New(cfg.Server.RateLimitPerMinute, universal, httpMetrics, log)
	if err != nil {
		return fail(err)
	}
	a.Router = httptransport.NewRouter(httptransport.RouterDeps{
		Logger:    log,
		Metrics:   httpMetrics,
		RateLimit: limiter,
		Checks:    checks,
		Handlers: []httptransport.RouteRegistrar{
			identityhandler.New(identity, validator, log, cfg.Server.Environment == config.Production),
			attendancehandler.New(events, claims, verifier, validator, log),
		},
	})
	return a, nil
}

// claimLockTTL outlives the slowest claim the server will still answer, so a
// held lock cannot lapse while the holder is minting.
func claimLockTTL(issuerTimeout time.Duration) time.Duration {
	return httpserver.WriteTimeout(issuerTimeout) + 30*time.Second
}

// buildAuditStore prefers kafka, then postgres, then process memory.
func buildAuditStore(ctx context.Context, cfg config.Config, db *sql.DB, log *slog.Logger, a *app) (audit.Store, error) {
	switch {
	case len(cfg.Audit.KafkaBrokers) > 0:
		s, err := auditkafka.New(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.Topic)
		if err != nil {
			return nil, fmt.Errorf("connect audit kafka: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		log.Info("audit events published to kafka", "topic", cfg.Audit.Topic)
		return s, nil
	case db != nil:
		return auditpostgres.New(db), nil
	default:
		return auditmemory.NewInMemoryStore(), nil
	}
}

// buildIssuer picks the content store and ledger backend and puts the ledger
// behind a circuit breaker.
func buildIssuer(ctx context.Context, cfg config.Config, rdb goredis.UniversalClient, log *slog.Logger) (*issuer.Service, error) {
	var contentStore issuer.ContentStore = content.NewMemory()
	if rdb != nil {
		contentStore = content.NewRedis(rdb)
	}

	var l issuer.Ledger
	switch cfg.Issuer.Backend {
	case config.LedgerEVM:
		evm, err := ledger.DialEVM(ctx, cfg.Issuer.RPCURL, ledger.EVMConfig{
			ContractAddress: cfg.Issuer.ContractAddress,
			PrivateKey:      cfg.Issuer.PrivateKey,
			ChainID:         cfg.Issuer.ChainID,
		})
		if err != nil {
			return nil, fmt.Errorf("connect evm ledger: %w", err)
		}
		log.Info("using evm ledger", "contract", cfg.Issuer.ContractAddress, "account", evm.Account())
		l = evm
	default:
		log.Warn("using in-memory mock ledger")
		l = ledger.NewMock(ledger.WithUnassociated(cfg.Issuer.UnassociatedWallets...))
	}

	breaker := circuit.New("ledger",
		circuit.WithFailureThreshold(cfg.Issuer.BreakerFailureThreshold),
		circuit.WithSuccessThreshold(cfg.Issuer.BreakerSuccessThreshold),
		circuit.WithCooldown(cfg.Issuer.BreakerCooldown),
	)
	return issuer.New(contentStore, l,
		issuer.WithTimeout(cfg.Issuer.Timeout),
		issuer.WithBreaker(breaker),
		issuer.WithLogger(log),
		issuer.WithMetrics(issuermetrics.New()),
	), nil
}
