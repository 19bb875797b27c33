package main

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vogtb/cellcore/internal/server"
)

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	controller := server.NewController(server.NewSession(a.sheet), a.logger.Slog())
	router := server.SetupRouter(controller, a.metrics.Handler())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, a.cfg.Server.Addr, router, a.logger.Slog())
}
