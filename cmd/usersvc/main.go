package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/simple-usermgmt/pkg/audit"
	"github.com/tendant/simple-usermgmt/pkg/bootstrap"
	"github.com/tendant/simple-usermgmt/pkg/client"
	"github.com/tendant/simple-usermgmt/pkg/config"
	"github.com/tendant/simple-usermgmt/pkg/events"
	"github.com/tendant/simple-usermgmt/pkg/membership"
	"github.com/tendant/simple-usermgmt/pkg/metrics"
	"github.com/tendant/simple-usermgmt/pkg/password"
	"github.com/tendant/simple-usermgmt/pkg/role"
	roleapi "github.com/tendant/simple-usermgmt/pkg/role/api"
	"github.com/tendant/simple-usermgmt/pkg/store"
	"github.com/tendant/simple-usermgmt/pkg/user"
	userapi "github.com/tendant/simple-usermgmt/pkg/user/api"
)

func main() {
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed loading config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	hasher := password.NewBcryptHasher()
	storeConfig := store.Config{DataDir: cfg.PersistenceConfig.DataDir, Hasher: hasher}

	if cfg.PersistenceConfig.Type == "postgres" || cfg.PersistenceConfig.Type == "postgresql" {
		pool, err := connectPostgres(ctx, cfg.DatabaseConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", cfg.DatabaseConfig.Database, "host", cfg.DatabaseConfig.Host, "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		storeConfig.Pool = pool
	}

	s, err := store.New(cfg.PersistenceConfig.Type, storeConfig)
	if err != nil {
		slog.Error("Failed creating store", "type", cfg.PersistenceConfig.Type, "err", err)
		os.Exit(1)
	}
	slog.Info("Store ready", "type", cfg.PersistenceConfig.Type)

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitConfig.Enabled() {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitConfig.URL, cfg.RabbitConfig.Queue)
		if err != nil {
			slog.Warn("RabbitMQ unavailable, lifecycle events disabled", "err", err)
		} else {
			defer rabbit.Close()
			publisher = rabbit
		}
	}

	coordinator := membership.NewCoordinator(s)
	userService := user.NewUserService(s, coordinator,
		user.WithPolicy(cfg.PasswordPolicyConfig.ToPasswordPolicy()),
		user.WithPublisher(publisher),
	)
	roleService := role.NewRoleService(s, coordinator, role.WithPublisher(publisher))

	adminRoles := cfg.AuthzConfig.Roles()
	if cfg.BootstrapConfig.Enabled {
		runBootstrap(ctx, cfg, s, userService, roleService, config.GetPrimaryAdminRole(adminRoles))
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Handle("/metrics", metrics.Handler())

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JwtConfig.JwtSecret), nil)
	requireAdmin := client.RequireRole(adminRoles...)

	server.R.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cfg.CorsConfig.Options()))
		r.Use(metrics.Middleware)
		r.Use(client.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		r.Use(client.RequireIssuer(cfg.JwtConfig.JwtIssuer))
		r.Use(client.AuthUserMiddleware)
		r.Use(audit.NewMiddleware(publisher).AuditAuthMiddleware)

		userapi.NewHandle(userService).RegisterRoutes(r, requireAdmin)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			roleapi.NewHandle(roleService).RegisterRoutes(r)
		})
	})

	server.Run()
}

// connectPostgres opens the pool and applies migrations, retrying while the
// database comes up.
func connectPostgres(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := retry.Do(
		func() error {
			p, err := dbutils.NewDbPool(ctx, dbCfg.ToDbConfig())
			if err != nil {
				return err
			}
			if err := p.Ping(ctx); err != nil {
				p.Close()
				return err
			}
			if err := store.Migrate(dbCfg.ToDatabaseURL()); err != nil {
				p.Close()
				return err
			}
			pool = p
			return nil
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Database not ready, retrying", "attempt", n+1, "err", err)
		}),
		retry.Context(ctx),
	)
	return pool, err
}

func runBootstrap(ctx context.Context, cfg config.Config, s store.Store, users *user.UserService, roles *role.RoleService, adminRole string) {
	seederCfg := cfg.BootstrapConfig.ToSeederConfig(adminRole)

	var opts []bootstrap.Option
	if cfg.RedisConfig.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Addr,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		defer rdb.Close()
		opts = append(opts, bootstrap.WithLocker(
			bootstrap.NewRedisLocker(rdb, bootstrap.DefaultLockKey, cfg.BootstrapConfig.LockDuration()),
		))
	}

	result, err := bootstrap.NewSeeder(seederCfg, s, users, roles, opts...).Run(ctx)
	if err != nil {
		slog.Error("Bootstrap did not run", "err", err)
	}
	bootstrap.LogSeedSummary(result)
	bootstrap.PrintSeedResult(os.Stdout, seederCfg, result)
}
