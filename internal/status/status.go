// Package status serves a small read-only HTTP API over the stores.
package status

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"postcrafter/internal/analytics"
	"postcrafter/internal/storage"
)

// Backend is what the API reads from.
type Backend interface {
	storage.UserStore
	Stats(ctx context.Context, day time.Time) (storage.Stats, error)
	Ping(ctx context.Context) error
}

// NewRouter wires the handlers. posts may be nil, which disables /api/posts.
func NewRouter(store Backend, posts storage.PostRecorder, now func() time.Time) *gin.Engine {
	if now == nil {
		now = time.Now
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", HealthHandler(store))
	api := r.Group("/api")
	api.GET("/stats", StatsHandler(store, now))
	api.GET("/users/:id", UserHandler(store))
	if posts != nil {
		api.GET("/posts", PostsHandler(posts))
		api.GET("/posts/report", ReportHandler(posts, now))
	}
	return r
}

// HealthHandler reports whether the database answers.
func HealthHandler(store Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// StatsHandler returns counters for today, or for ?date=YYYY-MM-DD.
func StatsHandler(store Backend, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		day, ok := queryDay(c, now)
		if !ok {
			return
		}
		stats, err := store.Stats(c.Request.Context(), day)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// UserHandler returns one user with the usage counters.
func UserHandler(store Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		u, err := store.GetUser(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if u == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// PostsHandler returns archived posts, optionally filtered by ?user_id=.
func PostsHandler(posts storage.PostRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID int64
		if q := c.Query("user_id"); q != "" {
			id, err := strconv.ParseInt(q, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
				return
			}
			userID = id
		}
		all, err := posts.LoadPosts()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out := make([]storage.Post, 0, len(all))
		for _, p := range all {
			if userID == 0 || p.UserID == userID {
				out = append(out, p)
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

// ReportHandler summarizes the posts archived on one day. ?format=text
// returns the plain-text report.
func ReportHandler(posts storage.PostRecorder, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		day, ok := queryDay(c, now)
		if !ok {
			return
		}
		all, err := posts.LoadPosts()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		report := analytics.AnalyzeDailyPosts(all, day)
		if c.Query("format") == "text" {
			c.String(http.StatusOK, report.GenerateReportSummary())
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func queryDay(c *gin.Context, now func() time.Time) (time.Time, bool) {
	q := c.Query("date")
	if q == "" {
		return now(), true
	}
	d, err := time.ParseInLocation(time.DateOnly, q, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return d, true
}

// Serve runs the API on addr until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("status api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "status api stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
