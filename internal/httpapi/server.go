// Package httpapi exposes a small read-only HTTP surface alongside the
// line-protocol listener: health/stats for monitoring and a byte-range
// album-art fetch for clients that would rather not speak the binary
// framing of albumart/readpicture.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bken/audiompd/internal/instance"
)

// Server is the Echo application.
type Server struct {
	echo *echo.Echo
	inst *instance.Instance
}

// New constructs an Echo app with the monitoring + album-art routes.
func New(inst *instance.Instance) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, inst: inst}
	s.registerRoutes()
	return s
}

// requestLogger returns Echo middleware that logs each HTTP request via slog.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			reqID := uuid.New().String()
			c.Response().Header().Set("X-Request-Id", reqID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			path := req.URL.Path

			if path == "/health" {
				slog.Debug("http request",
					"request_id", reqID,
					"method", req.Method,
					"path", path,
					"status", c.Response().Status,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			} else {
				slog.Info("http request",
					"request_id", reqID,
					"method", req.Method,
					"path", path,
					"status", c.Response().Status,
					"duration_ms", time.Since(start).Milliseconds(),
					"remote", c.RealIP(),
				)
			}
			return nil
		}
	}
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/stats", s.handleStats)
	s.echo.GET("/partitions", s.handlePartitions)
	s.echo.GET("/albumart/*", s.handleAlbumArt)
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down http server")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		slog.Info("http server stopped")
		return nil
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Partitions int   `json:"partitions"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:     "ok",
		Partitions: len(s.inst.Partitions()),
	})
}

type statsResponse struct {
	Artists    int     `json:"artists"`
	Albums     int     `json:"albums"`
	Songs      int     `json:"songs"`
	UptimeSec  int64   `json:"uptime_sec"`
	DBPlaytime float64 `json:"db_playtime"`
	DBUpdate   int64   `json:"db_update"`
}

func (s *Server) handleStats(c echo.Context) error {
	st := s.inst.Stats()
	return c.JSON(http.StatusOK, statsResponse{
		Artists:    st.Artists,
		Albums:     st.Albums,
		Songs:      st.Songs,
		UptimeSec:  st.UptimeSec,
		DBPlaytime: st.DBPlaytime,
		DBUpdate:   st.DBUpdate,
	})
}

type partitionResponse struct {
	Name    string `json:"name"`
	Clients int    `json:"clients"`
}

func (s *Server) handlePartitions(c echo.Context) error {
	parts := s.inst.Partitions()
	out := make([]partitionResponse, 0, len(parts))
	for _, p := range parts {
		out = append(out, partitionResponse{Name: p.Name()})
	}
	return c.JSON(http.StatusOK, out)
}

// handleAlbumArt serves database.Song.ArtData over HTTP with Range
// support, for clients that prefer a plain byte-range GET to the
// line-protocol binary framing (spec.md's albumart/readpicture).
func (s *Server) handleAlbumArt(c echo.Context) error {
	uri := c.Param("*")
	if uri == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "song uri is required")
	}
	song, ok, err := s.inst.Database().Lookup(c.Request().Context(), uri)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok || len(song.ArtData) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no album art for this song")
	}

	data := song.ArtData
	start, end := 0, len(data)
	if rng := c.Request().Header.Get("Range"); rng != "" {
		if parsedStart, ok := parseByteRangeStart(rng); ok && parsedStart < len(data) {
			start = parsedStart
			c.Response().Header().Set("Content-Range", "bytes "+strconv.Itoa(start)+"-"+strconv.Itoa(end-1)+"/"+strconv.Itoa(len(data)))
			c.Response().WriteHeader(http.StatusPartialContent)
			_, werr := c.Response().Write(data[start:end])
			return werr
		}
	}
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	return c.Blob(http.StatusOK, "application/octet-stream", data[start:end])
}

// parseByteRangeStart parses the start offset N of a single-range
// "bytes=N-" header. An end offset ("bytes=N-M") is accepted but ignored:
// the caller always serves from N to the end of the data. Any other form
// makes the caller fall back to a full response.
func parseByteRangeStart(header string) (int, bool) {
	const prefix = "bytes="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return 0, false
	}
	spec := header[len(prefix):]
	dash := -1
	for i, c := range spec {
		if c == '-' {
			dash = i
			break
		}
	}
	if dash <= 0 {
		return 0, false
	}
	n, err := strconv.Atoi(spec[:dash])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
