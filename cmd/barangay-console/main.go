package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/barangay/egov/internal/config"
	"github.com/barangay/egov/internal/domain/account"
	"github.com/barangay/egov/internal/domain/clerk"
	"github.com/barangay/egov/internal/domain/complaint"
	"github.com/barangay/egov/internal/domain/council"
	"github.com/barangay/egov/internal/domain/health"
	"github.com/barangay/egov/internal/domain/profiling"
	"github.com/barangay/egov/internal/domain/treasury"
	"github.com/barangay/egov/internal/domain/waste"
	"github.com/barangay/egov/internal/platform/apiclient"
	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/db"
	"github.com/barangay/egov/internal/platform/middleware"
	"github.com/barangay/egov/internal/platform/query"
	"github.com/barangay/egov/internal/platform/wizard"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "barangay-console",
		Short:        "Barangay e-government console gateway",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(trucksCmd())
	rootCmd.AddCommand(residentsCmd())
	rootCmd.AddCommand(otpCmd())
	rootCmd.AddCommand(draftsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the console API gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg == nil || cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// backends holds one client per backend area.
type backends struct {
	waste, council, treasury, clerk, complaint *apiclient.Client
	health, inventory, profiling, account      *apiclient.Client
}

func newBackends(cfg *config.Config, ts apiclient.TokenSource, logger zerolog.Logger) (backends, error) {
	var b backends
	areas := []struct {
		name string
		dst  **apiclient.Client
	}{
		{"waste", &b.waste},
		{"council", &b.council},
		{"treasurer", &b.treasury},
		{"clerk", &b.clerk},
		{"complaint", &b.complaint},
		{"health", &b.health},
		{"inventory", &b.inventory},
		{"profiling", &b.profiling},
		{"account", &b.account},
	}
	for _, a := range areas {
		c, err := apiclient.New(cfg.BackendURL, a.name,
			apiclient.WithTimeout(cfg.BackendTimeout),
			apiclient.WithRateLimit(cfg.BackendRPS, cfg.BackendBurst),
			apiclient.WithTokenSource(ts),
			apiclient.WithLogger(logger.With().Str("area", a.name).Logger()),
		)
		if err != nil {
			return backends{}, fmt.Errorf("%s client: %w", a.name, err)
		}
		*a.dst = c
	}
	return b, nil
}

type services struct {
	waste     *waste.Service
	council   *council.Service
	treasury  *treasury.Service
	clerk     *clerk.Service
	complaint *complaint.Service
	profiling *profiling.Service
	health    *health.Service
	account   *account.Service
}

func newServices(b backends, cooldowns account.Cooldowns, otpCooldown time.Duration) services {
	residents := profiling.NewService(profiling.NewAPI(b.profiling))
	return services{
		waste:     waste.NewService(waste.NewAPI(b.waste)),
		council:   council.NewService(council.NewAPI(b.council)),
		treasury:  treasury.NewService(treasury.NewAPI(b.treasury)),
		clerk:     clerk.NewService(clerk.NewAPI(b.clerk)),
		complaint: complaint.NewService(complaint.NewAPI(b.complaint)),
		profiling: residents,
		health:    health.NewService(health.NewAPI(b.health, b.inventory), residents),
		account:   account.NewService(account.NewAPI(b.account), cooldowns, otpCooldown),
	}
}

func newRegistry(s services) *wizard.Registry {
	reg := wizard.NewRegistry()
	wizard.MustRegister(reg, s.council.Wizard())
	wizard.MustRegister(reg, s.complaint.Wizard())
	wizard.MustRegister(reg, s.health.Wizard())
	return reg
}

// stores are the console's own persistence. pool is nil when everything is
// kept in memory.
type stores struct {
	pool      *pgxpool.Pool
	drafts    wizard.Store
	cooldowns account.Cooldowns
}

func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if !cfg.UsePostgres() {
		return stores{drafts: wizard.NewMemoryStore(), cooldowns: account.NewMemoryCooldowns()}, nil
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return stores{}, err
	}
	return stores{pool: pool, drafts: wizard.NewPGStore(pool), cooldowns: account.NewPGCooldowns(pool)}, nil
}

func (s stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func queryOptions(cfg *config.Config, logger zerolog.Logger) []query.Option {
	return []query.Option{
		query.WithStaleTime(cfg.QueryStaleTime),
		query.WithGCTime(cfg.QueryGCTime),
		query.WithFetchTimeout(cfg.BackendTimeout),
		query.WithLogger(logger),
	}
}

func newQueryClient(cfg *config.Config, logger zerolog.Logger) *query.Client {
	return query.NewClient(queryOptions(cfg, logger)...)
}

// newServer wires the gateway. Every request gets its own toast center over
// the caller's own query cache.
func newServer(cfg *config.Config, logger zerolog.Logger, st stores) (*echo.Echo, error) {
	b, err := newBackends(cfg, auth.ForwardToken(), logger)
	if err != nil {
		return nil, err
	}
	svcs := newServices(b, st.cooldowns, cfg.OTPCooldown)
	mgr := wizard.NewManager(newRegistry(svcs), st.drafts, wizard.WithDraftTTL(cfg.DraftTTL))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = appctx.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M", "60M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(st.pool))

	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	apiV1.Use(middleware.RequestTimeout(cfg.BackendTimeout + 5*time.Second))
	apiV1.Use(appctx.Middleware(query.NewClients(queryOptions(cfg, logger)...), logger, cfg.ToastTTL))

	waste.NewHandler(svcs.waste).RegisterRoutes(apiV1)
	council.NewHandler(svcs.council).RegisterRoutes(apiV1)
	treasury.NewHandler(svcs.treasury).RegisterRoutes(apiV1)
	clerk.NewHandler(svcs.clerk).RegisterRoutes(apiV1)
	complaint.NewHandler(svcs.complaint).RegisterRoutes(apiV1)
	profiling.NewHandler(svcs.profiling).RegisterRoutes(apiV1)
	health.NewHandler(svcs.health).RegisterRoutes(apiV1)
	account.NewHandler(svcs.account).RegisterRoutes(apiV1)
	wizard.NewHandler(mgr).RegisterRoutes(apiV1)

	return e, nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		bootLogger := newLogger(nil)
		bootLogger.Error().Err(err).Msg("failed to load config")
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer st.Close()
	if st.pool != nil {
		logger.Info().Msg("connected to database")
	} else {
		logger.Warn().Msg("DATABASE_URL not set: drafts and OTP cooldowns are kept in memory")
	}

	e, err := newServer(cfg, logger, st)
	if err != nil {
		return err
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.BackendURL).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
