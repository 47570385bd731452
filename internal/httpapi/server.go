// Package httpapi exposes the read-only status surface: health, corpus
// stats, recent records and semantic search.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/dedup"
	"horse.fit/driftnet/internal/globaltime"
)

const (
	defaultRecordLimit = 25
	maxRecordLimit     = 200
)

// Searcher answers free-text similarity queries.
type Searcher interface {
	SearchByText(ctx context.Context, text string, k int, minScore float32) ([]dedup.Hit, error)
}

// Store is the read-only slice of the relational store the API serves,
// satisfied by *db.Pool.
type Store interface {
	QueryCorpusStats(ctx context.Context) (*db.CorpusStats, error)
	ListRecentRecords(ctx context.Context, limit int, uniqueOnly bool) ([]db.Record, error)
	ListRecordsByIDs(ctx context.Context, ids []int64) ([]db.Record, error)
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	store    Store
	searcher Searcher
	logger   zerolog.Logger
	opts     Options
}

func NewServer(store Store, searcher Searcher, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		store:    store,
		searcher: searcher,
		logger:   logger,
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
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

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

	s.logger.Info().Str("addr", addr).Msg("status server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("status server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
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
			event := s.logger.Info()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
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

	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api")
	api.GET("/stats", s.handleStats)
	api.GET("/records", s.handleRecords)
	api.GET("/search", s.handleSearch)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if text, ok := he.Message.(string); ok && strings.TrimSpace(text) != "" {
			message = text
		} else if text := http.StatusText(status); text != "" {
			message = text
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
	return success(c, map[string]any{
		"service": "driftnet",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.QueryCorpusStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleRecords(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}
	uniqueOnly := c.QueryParam("unique_only") == "true"

	records, err := s.store.ListRecentRecords(c.Request().Context(), limit, uniqueOnly)
	if err != nil {
		s.logger.Error().Err(err).Msg("list records failed")
		return internalError(c, "Failed to load records")
	}
	return success(c, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

type searchHit struct {
	Score  float32   `json:"score"`
	Record db.Record `json:"record"`
}

func (s *Server) handleSearch(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return fail(c, http.StatusBadRequest, "query parameter q is required", nil)
	}

	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}

	var minScore float32
	if raw := strings.TrimSpace(c.QueryParam("min_score")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 32)
		if err != nil || parsed < 0 || parsed > 1 {
			return fail(c, http.StatusBadRequest, "min_score must be a number between 0 and 1", nil)
		}
		minScore = float32(parsed)
	}

	hits, err := s.searcher.SearchByText(c.Request().Context(), query, limit, minScore)
	if err != nil {
		s.logger.Error().Err(err).Msg("search failed")
		return internalError(c, "Search is unavailable")
	}

	ids := make([]int64, 0, len(hits))
	scores := make(map[int64]float32, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
		scores[hit.ID] = hit.Score
	}

	records, err := s.store.ListRecordsByIDs(c.Request().Context(), ids)
	if err != nil {
		s.logger.Error().Err(err).Msg("resolve search hits failed")
		return internalError(c, "Search is unavailable")
	}

	results := make([]searchHit, 0, len(records))
	for _, record := range records {
		results = append(results, searchHit{Score: scores[record.ID], Record: record})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	return success(c, map[string]any{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultRecordLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > maxRecordLimit {
		limit = maxRecordLimit
	}
	return limit, nil
}
