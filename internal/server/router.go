// Package server exposes a sheet over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vogtb/cellcore"
)

const ApiVersion = "v1"

const requestIDHeader = "X-Request-ID"

type CellEndpointParams struct {
	Ref string `uri:"ref" binding:"required"`
}

type SetCellRequest struct {
	Value *string `json:"value" binding:"required"`
}

// Controller holds the handlers for the cell API
type Controller struct {
	session *Session
	logger  *slog.Logger
}

func NewController(session *Session, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{session: session, logger: logger}
}

// SetupRouter wires the API routes. metrics may be nil, in which case
// /metrics is not served.
func SetupRouter(controller *Controller, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), controller.accessLog())

	api := router.Group("/api/" + ApiVersion)
	api.GET("/cells", controller.ListCellsAction)
	api.GET("/cells/:ref", controller.GetCellAction)
	api.POST("/cells/:ref", controller.SetCellAction)
	api.DELETE("/cells/:ref", controller.DeleteCellAction)
	api.GET("/cells/:ref/dependents", controller.DependentsAction)

	router.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "health")
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	return router
}

// requestID propagates the caller's request ID or assigns a new one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (api *Controller) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		api.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, cellcore.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, cellcore.ErrCellNotFound):
		return http.StatusNotFound
	case errors.Is(err, cellcore.ErrDestroyed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (api *Controller) bindPosition(c *gin.Context) (cellcore.Position, bool) {
	params := CellEndpointParams{}
	err := c.ShouldBindUri(&params)
	var pos cellcore.Position
	if err == nil {
		pos, err = cellcore.ParseAddress(params.Ref)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return pos, false
	}
	return pos, true
}

func (api *Controller) GetCellAction(c *gin.Context) {
	pos, ok := api.bindPosition(c)
	if !ok {
		return
	}
	view, err := api.session.Get(pos)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (api *Controller) SetCellAction(c *gin.Context) {
	pos, ok := api.bindPosition(c)
	if !ok {
		return
	}
	request := SetCellRequest{}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	view, err := api.session.Set(pos, *request.Value)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, view)
}

// DeleteCellAction clears the cell, or frees it with ?free=true
func (api *Controller) DeleteCellAction(c *gin.Context) {
	pos, ok := api.bindPosition(c)
	if !ok {
		return
	}
	var err error
	if c.Query("free") == "true" {
		err = api.session.Free(pos)
	} else {
		err = api.session.Clear(pos)
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (api *Controller) DependentsAction(c *gin.Context) {
	pos, ok := api.bindPosition(c)
	if !ok {
		return
	}
	deps, err := api.session.Dependents(pos)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ref": pos.String(), "dependents": deps})
}

func (api *Controller) ListCellsAction(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cells": api.session.List()})
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
