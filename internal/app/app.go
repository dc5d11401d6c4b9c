package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/gatherhub/polls/core/internal/config"
	http_init "github.com/gatherhub/polls/core/internal/delivery/http/init"
	http_access_middleware "github.com/gatherhub/polls/core/internal/delivery/http/middleware/access"
	http_session_middleware "github.com/gatherhub/polls/core/internal/delivery/http/middleware/session"
	http_poll "github.com/gatherhub/polls/core/internal/delivery/http/poll"
	http_staging "github.com/gatherhub/polls/core/internal/delivery/http/staging"
	http_swagger "github.com/gatherhub/polls/core/internal/delivery/http/swagger"
	ws_poll "github.com/gatherhub/polls/core/internal/delivery/ws/poll"
	infra_postgres_identity "github.com/gatherhub/polls/core/internal/infra/postgres/identity"
	infra_pg_init "github.com/gatherhub/polls/core/internal/infra/postgres/init"
	infra_postgres_poll "github.com/gatherhub/polls/core/internal/infra/postgres/poll"
	infra_redis_init "github.com/gatherhub/polls/core/internal/infra/redis/init"
	infra_redis_pubsub "github.com/gatherhub/polls/core/internal/infra/redis/pubsub"
	infra_redis_staging "github.com/gatherhub/polls/core/internal/infra/redis/staging"
	infra_token_cache "github.com/gatherhub/polls/core/internal/infra/redis/tokens"
	"github.com/gatherhub/polls/core/internal/service/tally"
	service_verification "github.com/gatherhub/polls/core/internal/service/verification"
	usecase_poll "github.com/gatherhub/polls/core/internal/usecase/poll"
	usecase_staging "github.com/gatherhub/polls/core/internal/usecase/staging"
	"github.com/robfig/cron/v3"
)

func Go(cfg *config.Config) {
	redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
	pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)

	pollRepository := infra_postgres_poll.New(pgConn)
	identityRepository := infra_postgres_identity.New(pgConn)
	stagingStore := infra_redis_staging.New(redisConn, "staged_votes", cfg.Polls.StagingTTL)
	bus := infra_redis_pubsub.New(redisConn)
	tokenCache := infra_token_cache.New(redisConn, "verification_tokens")

	calculator := tally.New(cfg.Polls.MeanPrecision)

	pollUC := usecase_poll.New(pollRepository, bus, calculator,
		usecase_poll.WithConflictRetries(cfg.Polls.ConflictRetries))

	verification := service_verification.New(tokenCache,
		service_verification.NewLogMailer(slog.Default()), identityRepository)

	stagingUC := usecase_staging.New(stagingStore, pollRepository, pollUC,
		identityRepository, verification)

	hub := ws_poll.NewHub(bus)
	go hub.Run()

	// Deadline sweep; the store also closes lazily on every read, so the
	// sweep mainly lets idle polls and their viewers catch up.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Polls.SweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		closed, err := pollUC.CloseExpired(ctx, time.Now())
		if err != nil {
			slog.Error("deadline sweep failed", slog.String("error", err.Error()))
			return
		}
		if closed > 0 {
			slog.Info("deadline sweep closed polls", slog.Int("count", closed))
		}
	}); err != nil {
		panic(err)
	}
	sweeper.Start()

	sessionMiddleware := http_session_middleware.New()

	controllerPool := http_init.NewControllerPool(
		http_access_middleware.ReadOnlyBadGatewayMiddleware(cfg.HTTP.Mode))
	controllerPool.Add(http_swagger.New())
	controllerPool.Add(http_poll.New(pollUC))
	controllerPool.Add(http_staging.New(stagingUC, verification, sessionMiddleware))
	controllerPool.Add(ws_poll.NewController(hub))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}
