package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-signin"
	"github.com/goliatone/go-signin/config"
)

type App struct {
	config   *config.Config
	bunDB    *bun.DB
	repo     auth.RepositoryManager
	auther   *auth.Auther
	httpAuth *auth.RouteAuthenticator
	seeder   *auth.SeedUsersHandler
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) LoggerProvider() auth.LoggerProvider {
	return auth.LoggerProviderFunc(func(name string) auth.Logger {
		return a.logger.GetLogger(name)
	})
}

func main() {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, print.MaybePrettyJSON(map[string]any{"config_error": err.Error()}))
		os.Exit(1)
	}

	opts := loggerOptions(
		glog.WithName("signin"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
	if cfg.Log.Pretty {
		opts = append(opts, glog.WithLoggerTypePretty())
	}
	if cfg.Log.Level == "debug" || cfg.Log.Level == "trace" {
		opts = append(opts, glog.WithLevel(glog.Trace))
	}

	app := &App{
		config: cfg,
		logger: glog.NewLogger(opts...),
	}

	logger := app.GetLogger("app")
	logger.Debug("configuration loaded", "config", print.MaybePrettyJSON(cfg))

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		logger.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}
	defer app.bunDB.Close()

	if err := WithAuth(app); err != nil {
		logger.Error("auth setup failed", "error", err)
		os.Exit(1)
	}

	if cfg.Seed.Enabled {
		if _, err := app.seeder.Seed(ctx, auth.SeedUsersMessage{Users: cfg.Seed.Users}); err != nil {
			logger.Error("seed failed", "error", err)
			os.Exit(1)
		}
	}

	WithHTTPServer(app)

	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := app.srv.Serve(cfg.Server.Address); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.config.Persistence

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to open database")
	}

	client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create persistence client")
	}

	client.SetLogger(app.GetLogger("persistence"))

	if err := auth.Migrate(ctx, client); err != nil {
		return err
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		app.GetLogger("persistence").Info("migrations", "report", report.String())
	}

	app.bunDB = client.DB()
	app.repo = auth.NewRepositoryManager(app.bunDB)
	app.repo.MustValidate()

	return nil
}

func WithAuth(app *App) error {
	cfg := app.config.Auth

	auther, err := auth.NewAuthenticator(app.repo.Users(), cfg)
	if err != nil {
		return err
	}

	activity := app.GetLogger("activity")
	app.auther = auther.
		WithLoggerProvider(app.LoggerProvider()).
		WithActivitySink(auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
			activity.Info(string(event.EventType),
				"user_id", event.UserID,
				"email", event.Email,
				"reason", event.Reason,
				"occurred_at", event.OccurredAt,
			)
			return nil
		}))

	httpAuth, err := auth.NewHTTPAuthenticator(app.auther, cfg)
	if err != nil {
		return err
	}
	app.httpAuth = httpAuth.WithLoggerProvider(app.LoggerProvider())

	app.seeder = auth.NewSeedUsersHandler(
		app.repo,
		auth.NewBcryptHasher(cfg.BcryptCost),
		app.GetLogger("seed"),
	)

	return nil
}

func WithHTTPServer(app *App) {
	app.srv = router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			CaseSensitive: true,
		}))
	})

	r := app.srv.Router()
	r.Use(app.httpAuth.GateMiddleware())

	auth.RegisterAuthRoutes(r,
		auth.WithControllerAuther(app.httpAuth),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		auth.WithControllerDebug(app.config.Log.Level == "debug"),
	)

	r.Get("/", func(c router.Context) error {
		return c.JSON(http.StatusOK, router.ViewContext{
			"session": app.httpAuth.CurrentSession(c),
		})
	}).SetName("home")

	r.Get(app.config.Auth.SignInPath, func(c router.Context) error {
		return c.JSON(http.StatusOK, router.ViewContext{
			"message": "POST email and password to sign in",
		})
	}).SetName("sign-in.get")

	r.Get("/dashboard", DashboardShow(app)).SetName("dashboard")
	r.Get("/dashboard/invoices", DashboardShow(app)).SetName("dashboard.invoices")

	r.Get("/api/invoices", func(c router.Context) error {
		session, _ := auth.SessionFromContext(c.Context())
		return c.JSON(http.StatusOK, router.ViewContext{
			"user":     session.User,
			"invoices": []any{},
		})
	}, app.httpAuth.ProtectedRoute(nil)).SetName("api.invoices")

	if app.config.Seed.Enabled {
		r.Get("/api/seed", SeedRun(app)).SetName("api.seed")
	}
}

// DashboardShow returns the signed in user, the gate keeps anonymous
// requests out
func DashboardShow(app *App) router.HandlerFunc {
	return func(c router.Context) error {
		session := app.httpAuth.CurrentSession(c)
		return c.JSON(http.StatusOK, router.ViewContext{
			"path": c.Path(),
			"user": session.User,
		})
	}
}

func SeedRun(app *App) router.HandlerFunc {
	return func(c router.Context) error {
		result, err := app.seeder.Seed(c.Context(), auth.SeedUsersMessage{Users: app.config.Seed.Users})
		if err != nil {
			app.GetLogger("seed").Error("seed failed", "error", err)
			return c.JSON(http.StatusInternalServerError, router.ViewContext{
				"error": auth.ReasonSomethingWentWrong,
			})
		}
		return c.JSON(http.StatusOK, result)
	}
}

func loggerOptions[O any](opts ...O) []O {
	return opts
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
