package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/db"
	"github.com/open4good/open4goods-sub001/internal/globaltime"
	"github.com/open4good/open4goods-sub001/internal/model"
	"github.com/open4good/open4goods-sub001/internal/pipeline"
)

const (
	defaultExportLimit = 100
	maxExportLimit     = 1000
	maxObservationBody = 1 << 20
	maxBulkBody        = 8 << 20
)

// MergeResult is the outcome of one real-time observation merge.
type MergeResult struct {
	Product    *model.Product `json:"product"`
	Persisted  bool           `json:"persisted"`
	Skipped    bool           `json:"skipped"`
	SkipReason string         `json:"skip_reason,omitempty"`
}

// BulkMergeStats is the outcome of one bulk observation ingestion: the
// observation set is grouped by GTIN, each group merged through the
// pipeline, each mutated product persisted once.
type BulkMergeStats struct {
	Groups       int `json:"groups"`
	Unassociated int `json:"unassociated"`
	Merged       int `json:"merged"`
	Skipped      int `json:"skipped"`
	Persisted    int `json:"persisted"`
}

// Aggregator is the aggregation service surface the API exposes. Fatal
// pipeline results arrive as plain errors.
type Aggregator interface {
	MergeObservation(ctx context.Context, vertical string, obs *model.Observation) (MergeResult, error)
	MergeObservationSet(ctx context.Context, vertical string, observations []*model.Observation) (BulkMergeStats, error)
	RunBatch(ctx context.Context, vertical string, filter db.ExportFilter) (pipeline.BatchStats, error)
	Verticals() []string
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool       *db.Pool
	aggregator Aggregator
	logger     zerolog.Logger
	opts       Options
}

func NewServer(pool *db.Pool, aggregator Aggregator, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8082
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:       pool,
		aggregator: aggregator,
		logger:     logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil || s.aggregator == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/verticals", s.handleVerticals)
	api.POST("/verticals/:vertical/observations", s.handleMergeObservation)
	api.POST("/verticals/:vertical/observations/bulk", s.handleMergeObservationSet)
	api.POST("/verticals/:vertical/batch", s.handleRunBatch)
	api.GET("/products", s.handleListProducts)
	api.GET("/products/:gtin", s.handleGetProduct)
	api.DELETE("/products/:gtin", s.handleDeleteProduct)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("aggregator api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("aggregator api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	if sqlDB := s.pool.DB(); sqlDB != nil {
		if err := sqlDB.PingContext(c.Request().Context()); err != nil {
			s.logger.Error().Err(err).Msg("health check database ping failed")
			return internalError(c, "Database unreachable")
		}
	}
	return success(c, map[string]any{
		"service": "aggregator",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleVerticals(c echo.Context) error {
	return success(c, map[string]any{
		"items": s.aggregator.Verticals(),
	})
}

func (s *Server) handleMergeObservation(c echo.Context) error {
	vertical := normalizeVertical(c.Param("vertical"))
	if vertical == "" {
		return failValidation(c, map[string]string{"vertical": "is required"})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxObservationBody))
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not be read"})
	}
	if err := validateObservationPayload(body); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	var obs model.Observation
	if err := json.Unmarshal(body, &obs); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if obs.FetchedAt.IsZero() {
		obs.FetchedAt = globaltime.UTC()
	}

	result, err := s.aggregator.MergeObservation(c.Request().Context(), vertical, &obs)
	if err != nil {
		if isUnknownVertical(err) {
			return failNotFound(c, err.Error())
		}
		s.logger.Error().Err(err).Int64("gtin", obs.GTIN).Str("vertical", vertical).Msg("observation merge failed")
		return internalError(c, "Observation merge failed")
	}
	return successWithStatus(c, http.StatusCreated, result)
}

func (s *Server) handleMergeObservationSet(c echo.Context) error {
	vertical := normalizeVertical(c.Param("vertical"))
	if vertical == "" {
		return failValidation(c, map[string]string{"vertical": "is required"})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBulkBody))
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not be read"})
	}
	items, err := decodeObservationArray(body)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if len(items) == 0 {
		return failValidation(c, map[string]string{"body": "at least one observation is required"})
	}

	observations := make([]*model.Observation, 0, len(items))
	for i, raw := range items {
		if err := validateObservationPayload(raw); err != nil {
			return failValidation(c, map[string]string{fmt.Sprintf("observations[%d]", i): err.Error()})
		}
		var obs model.Observation
		if err := json.Unmarshal(raw, &obs); err != nil {
			return failValidation(c, map[string]string{fmt.Sprintf("observations[%d]", i): err.Error()})
		}
		if obs.FetchedAt.IsZero() {
			obs.FetchedAt = globaltime.UTC()
		}
		observations = append(observations, &obs)
	}

	stats, err := s.aggregator.MergeObservationSet(c.Request().Context(), vertical, observations)
	if err != nil {
		if isUnknownVertical(err) {
			return failNotFound(c, err.Error())
		}
		s.logger.Error().Err(err).Str("vertical", vertical).Int("observations", len(observations)).Msg("bulk observation merge failed")
		return internalError(c, "Bulk observation merge failed")
	}
	return success(c, stats)
}

func (s *Server) handleRunBatch(c echo.Context) error {
	vertical := normalizeVertical(c.Param("vertical"))
	if vertical == "" {
		return failValidation(c, map[string]string{"vertical": "is required"})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), 0, 0, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	filter := db.ExportFilter{
		Vertical: vertical,
		Brand:    strings.TrimSpace(c.QueryParam("brand")),
		Limit:    limit,
	}

	stats, err := s.aggregator.RunBatch(c.Request().Context(), vertical, filter)
	if err != nil {
		if isUnknownVertical(err) {
			return failNotFound(c, err.Error())
		}
		s.logger.Error().Err(err).Str("vertical", vertical).Msg("batch run failed")
		return internalError(c, "Batch run failed")
	}
	return success(c, stats)
}

func (s *Server) handleListProducts(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultExportLimit, 1, maxExportLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	filter := db.ExportFilter{
		Vertical: normalizeVertical(c.QueryParam("vertical")),
		Brand:    strings.TrimSpace(c.QueryParam("brand")),
		Limit:    limit,
	}

	products, err := db.ExportProducts(c.Request().Context(), s.pool, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("export products failed")
		return internalError(c, "Failed to load products")
	}
	return success(c, map[string]any{
		"items": products,
		"limit": limit,
	})
}

func (s *Server) handleGetProduct(c echo.Context) error {
	gtin, err := parseGTIN(c.Param("gtin"))
	if err != nil {
		return failValidation(c, map[string]string{"gtin": err.Error()})
	}

	product, err := db.GetProduct(c.Request().Context(), s.pool, gtin)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Product not found")
		}
		s.logger.Error().Err(err).Int64("gtin", gtin).Msg("load product failed")
		return internalError(c, "Failed to load product")
	}
	return success(c, product)
}

func (s *Server) handleDeleteProduct(c echo.Context) error {
	gtin, err := parseGTIN(c.Param("gtin"))
	if err != nil {
		return failValidation(c, map[string]string{"gtin": err.Error()})
	}

	deleted, err := db.DeleteProduct(c.Request().Context(), s.pool, gtin)
	if err != nil {
		s.logger.Error().Err(err).Int64("gtin", gtin).Msg("delete product failed")
		return internalError(c, "Failed to delete product")
	}
	if !deleted {
		return failNotFound(c, "Product not found")
	}
	return success(c, map[string]any{
		"gtin":    gtin,
		"deleted": true,
	})
}

func normalizeVertical(raw string) string {
	return strings.TrimSpace(strings.ToLower(raw))
}

func parseGTIN(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	gtin, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || gtin <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return gtin, nil
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

// ErrUnknownVertical is returned by the aggregation service when a request
// names a vertical with no configuration.
var ErrUnknownVertical = errors.New("unknown vertical")

func isUnknownVertical(err error) bool {
	return errors.Is(err, ErrUnknownVertical)
}
