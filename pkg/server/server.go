package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/store"
)

const defaultRunLimit = 20

// ReportStore is the read side the API needs from the store.
type ReportStore interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunMeta, error)
	LatestRunID(ctx context.Context) (string, error)
	LoadReport(ctx context.Context, runID string) (model.Report, error)
}

// New wires the read-only report API over persisted runs.
func New(st ReportStore) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/runs", listRuns(st))
		api.GET("/runs/latest", latestRun(st))
		api.GET("/runs/:id", getRun(st))
	}
	return r
}

func listRuns(st ReportStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRunLimit)))
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		runs, err := st.ListRuns(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if runs == nil {
			runs = []store.RunMeta{}
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}

func latestRun(st ReportStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := st.LatestRunID(c.Request.Context())
		if err != nil {
			renderStoreError(c, err)
			return
		}
		report, err := st.LoadReport(c.Request.Context(), id)
		if err != nil {
			renderStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "report": report})
	}
}

func getRun(st ReportStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		report, err := st.LoadReport(c.Request.Context(), id)
		if err != nil {
			renderStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "report": report})
	}
}

func renderStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
