// Package server serves the material dashboard: forecast JSON, chart pages and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aouyang1/go-costcast/forecast"
	"github.com/aouyang1/go-costcast/materials"
	"github.com/aouyang1/go-costcast/metrics"
	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	DefaultAddr      = ":8080"
	DefaultCacheSize = 256

	shutdownTimeout = 10 * time.Second
)

// Option configures a Server
type Option func(*Server)

// WithCacheSize bounds the number of cached forecasts
func WithCacheSize(size int) Option {
	return func(s *Server) {
		s.cacheSize = size
	}
}

// WithForecastFunc replaces the material forecast, mostly for tests
func WithForecastFunc(fn ForecastFunc) Option {
	return func(s *Server) {
		s.forecastFn = fn
	}
}

// ForecastFunc forecasts periods months past the end of a material series
type ForecastFunc func(m *materials.Material, periods int) (*forecast.Result, error)

type cacheKey struct {
	key     string
	periods int
}

// Server wraps the echo instance with the material catalog and a cache of fitted forecasts
type Server struct {
	echo       *echo.Echo
	catalog    *materials.Catalog
	recorder   *metrics.Recorder
	cache      *lru.Cache[cacheKey, *forecast.Result]
	cacheSize  int
	forecastFn ForecastFunc
}

// New creates the server and registers every route
func New(catalog *materials.Catalog, recorder *metrics.Recorder, opts ...Option) (*Server, error) {
	s := &Server{
		catalog:   catalog,
		recorder:  recorder,
		cacheSize: DefaultCacheSize,
		forecastFn: func(m *materials.Material, periods int) (*forecast.Result, error) {
			return materials.Forecast(m.Data, periods)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recorder == nil {
		s.recorder = metrics.New(false)
	}

	cache, err := lru.New[cacheKey, *forecast.Result](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("unable to create forecast cache, %w", err)
	}
	s.cache = cache

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	e.GET("/healthz", s.Health)
	e.GET("/metrics", echo.WrapHandler(s.recorder.Handler()))
	e.GET("/materials/:name", s.Chart)

	api := e.Group("/api")
	api.GET("/materials", s.ListMaterials)
	api.GET("/materials/:name/forecast", s.Forecast)

	s.echo = e
	return s, nil
}

// Echo returns the underlying echo instance
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Run serves on addr until the context is cancelled and then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shutdown http server, %w", err)
	}
	slog.Info("http server stopped")
	return nil
}

// forecast returns a cached forecast of the material or fits a new one
func (s *Server) forecast(m *materials.Material, periods int) (*forecast.Result, error) {
	key := cacheKey{key: m.Key, periods: periods}
	if res, exists := s.cache.Get(key); exists {
		s.recorder.CacheHit()
		return res, nil
	}
	s.recorder.CacheMiss()

	start := time.Now()
	res, err := s.forecastFn(m, periods)
	s.recorder.ObserveRun(m.Key, start, err)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, res)
	return res, nil
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				slog.Warn("http request",
					"method", v.Method, "uri", v.URI, "status", v.Status,
					"latency", v.Latency, "error", v.Error.Error())
				return nil
			}
			slog.Debug("http request",
				"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	})
}

// jsonSerializer encodes responses with goccy/go-json
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unmarshal type error: expected=%v, got=%v, field=%v, offset=%v",
				typeErr.Type, typeErr.Value, typeErr.Field, typeErr.Offset)).SetInternal(err)
	case errors.As(err, &syntaxErr):
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("syntax error: offset=%v, error=%v", syntaxErr.Offset, syntaxErr.Error())).SetInternal(err)
	}
	return err
}
