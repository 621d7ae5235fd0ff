package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"workhours/database"
	"workhours/handlers"
	"workhours/middleware"
	"workhours/web"
)

func newServeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Long:  "Migrate the database, create the default admin account if missing and serve the web interface until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.serve(ctx)
		},
	}
}

func (a *App) serve(ctx context.Context) error {
	store, closeDB, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := database.SeedDefaultAdmin(ctx, store, a.cfg.AdminUsername, a.cfg.AdminPassword, a.log); err != nil {
		return err
	}
	if a.cfg.UsesDefaultSecret() {
		a.log.Warn("JWT_SECRET is not set, sessions are signed with the development secret")
	}

	views, err := web.NewRenderer(a.log)
	if err != nil {
		return err
	}
	auth := middleware.NewAuthenticator(a.cfg.JWTSecret, a.cfg.JWTExpiration, store)

	srv := &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           handlers.NewRouter(a.cfg, store, auth, views, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		a.log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	egroup.Go(func() error {
		<-ctx.Done()
		a.log.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return egroup.Wait()
}
