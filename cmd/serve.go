package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medhirweb/salespipe/internal/api"
	"github.com/medhirweb/salespipe/internal/sweep"
	"github.com/medhirweb/salespipe/internal/transition"
	"github.com/medhirweb/salespipe/internal/upload"
)

var (
	servePort  int
	serveSweep bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead pipeline REST API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		notifier := initNotifier()
		uploads := upload.New(cfg.Upload.Dir, cfg.Upload.MaxSizeBytes)
		orch := transition.New(st, uploads, notifier)
		auth := api.NewAuthenticator(cfg.Auth.Tokens)
		server := api.NewServer(st, orch, auth, cfg.Server)

		if serveSweep {
			sweeper := sweep.New(st, notifier, cfg.Sweep.MaxConcurrency)
			go sweeper.Run(ctx, time.Duration(cfg.Sweep.IntervalSecs)*time.Second)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveSweep, "sweep", true, "run the overdue-activity sweep alongside the server")
	rootCmd.AddCommand(serveCmd)
}
