package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qazdocs/docsign/internal/config"
	"github.com/qazdocs/docsign/internal/core/ports"
	"github.com/qazdocs/docsign/internal/core/usecase"
	"github.com/qazdocs/docsign/internal/infrastructure/authority/sigex"
	"github.com/qazdocs/docsign/internal/infrastructure/doclock"
	natspub "github.com/qazdocs/docsign/internal/infrastructure/notify/nats"
	"github.com/qazdocs/docsign/internal/infrastructure/pdf/attestation"
	"github.com/qazdocs/docsign/internal/infrastructure/pdf/inspect"
	"github.com/qazdocs/docsign/internal/infrastructure/repository/postgres"
	"github.com/qazdocs/docsign/internal/infrastructure/resilience"
	"github.com/qazdocs/docsign/internal/infrastructure/storage/localfs"
	"github.com/qazdocs/docsign/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics

	Users    ports.UserDirectory
	CreateUC *usecase.CreateDocumentUseCase
	SubmitUC *usecase.SubmitSignatureUseCase
	ListUC   *usecase.ListDocumentsUseCase
	AuthUC   *usecase.AuthUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	docs := postgres.NewDocumentRepository(db)
	participants := postgres.NewParticipantRepository(db)
	users := postgres.NewUserRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	srvMetrics := metrics.NewHTTPServerMetrics("api")
	observer := srvMetrics.SigningObserver("api")
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	authority := sigex.New(cfg.AuthorityBaseURL,
		sigex.WithTimeout(time.Duration(cfg.AuthorityTimeoutSeconds)*time.Second),
		sigex.WithExecutor(executor),
		sigex.WithObserver(observer),
	)

	fonts, err := attestation.NewFontRegistry(cfg.FontPath)
	if err != nil {
		return nil, fmt.Errorf("init font registry: %w", err)
	}
	composer := attestation.NewComposer(storage, fonts, logger, attestation.WithObserver(observer))

	publisher, err := natspub.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natspub.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init event publisher: %w", err)
	}

	inspector := inspect.New()
	locker := doclock.NewRegistry()
	normalizer := usecase.NewNormalizer(authority, logger)

	createUC := usecase.NewCreateDocumentUseCase(docs, users, storage, authority, inspector)
	submitUC := usecase.NewSubmitSignatureUseCase(
		docs, participants, authority, normalizer, composer,
		locker, publisher, cfg.CompleteOnAllSigned, logger,
	)
	listUC := usecase.NewListDocumentsUseCase(docs)
	authUC := usecase.NewAuthUseCase(authority, users)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: srvMetrics,

		Users:    users,
		CreateUC: createUC,
		SubmitUC: submitUC,
		ListUC:   listUC,
		AuthUC:   authUC,

		closeFn: func() {
			publisher.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
