// Package api exposes the detection engine over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/galafis/Anomaly-Detection-System/internal/database"
	"github.com/galafis/Anomaly-Detection-System/pkg/detector"
	"github.com/galafis/Anomaly-Detection-System/pkg/logger"
	"github.com/galafis/Anomaly-Detection-System/pkg/report"
)

// Controller handles the detection API endpoints.
type Controller struct {
	engine *detector.Engine
	log    *logger.Logger
	tracer trace.Tracer
}

// NewController creates the API controller.
func NewController(engine *detector.Engine, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		engine: engine,
		log:    log.WithField("component", "api"),
		tracer: otel.Tracer("api-controller"),
	}
}

// RegisterRoutes registers all detection routes on the router group.
func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/detect", c.Detect)
	router.POST("/batch-detect", c.BatchDetect)
	router.POST("/train", c.Train)
	router.GET("/training-progress", c.TrainingProgress)
	router.GET("/metrics", c.Metrics)
	router.GET("/history", c.History)
	router.POST("/feedback", c.Feedback)
	router.GET("/status", c.Status)
	router.GET("/report", c.Report)
}

// Detect scores a single feature vector.
func (c *Controller) Detect(ctx *gin.Context) {
	spanCtx, span := c.tracer.Start(ctx.Request.Context(), "api.detect")
	defer span.End()

	var req DetectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := c.engine.Detect(spanCtx, req.Features, req.Algorithm)
	if err != nil {
		c.writeDetectError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// BatchDetect scores every row of a feature matrix in order and returns the
// per-row results together with totals.
func (c *Controller) BatchDetect(ctx *gin.Context) {
	spanCtx, span := c.tracer.Start(ctx.Request.Context(), "api.batch_detect")
	defer span.End()

	var req BatchDetectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	resp := BatchDetectResponse{Results: make([]*detector.AnomalyResult, 0, len(req.Data))}
	for _, features := range req.Data {
		result, err := c.engine.Detect(spanCtx, features, req.Algorithm)
		if err != nil {
			c.writeDetectError(ctx, err)
			return
		}
		if result.IsAnomaly {
			resp.AnomaliesFound++
		}
		resp.Results = append(resp.Results, result)
	}
	resp.TotalProcessed = len(resp.Results)
	ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) writeDetectError(ctx *gin.Context, err error) {
	var dimErr *detector.DimensionError
	var valErr *detector.ValueError
	switch {
	case errors.As(err, &dimErr), errors.As(err, &valErr),
		errors.Is(err, detector.ErrUnknownAlgorithm):
		ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, detector.ErrModelNotTrained),
		errors.Is(err, detector.ErrNoAlgorithmAvailable):
		ctx.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		c.log.Error("detect failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "detection failed"})
	}
}

// Train starts a background retraining run.
func (c *Controller) Train(ctx *gin.Context) {
	var req TrainRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	err := c.engine.TrainAsync(ctx.Request.Context(), req.Data, req.Algorithm)
	if err != nil {
		switch {
		case errors.Is(err, detector.ErrTrainingInProgress):
			ctx.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		default:
			var dimErr *detector.DimensionError
			if errors.As(err, &dimErr) || errors.Is(err, detector.ErrUnknownAlgorithm) {
				ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
				return
			}
			c.log.Error("train failed to start: %v", err)
			ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "training failed to start"})
		}
		return
	}
	ctx.JSON(http.StatusAccepted, messageResponse{Message: "training started"})
}

// TrainingProgress reports the in-flight flag and percentage.
func (c *Controller) TrainingProgress(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.engine.TrainingStatus())
}

// Metrics returns persisted validation metrics, newest first.
func (c *Controller) Metrics(ctx *gin.Context) {
	metrics, err := c.engine.Metrics(ctx.Request.Context())
	if err != nil {
		c.log.Error("metrics query failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load metrics"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"metrics": metrics})
}

// History returns stored detection results, newest first.
func (c *Controller) History(ctx *gin.Context) {
	limit := 100
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ctx.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	results, err := c.engine.History(ctx.Request.Context(), limit, ctx.Query("algorithm"))
	if err != nil {
		if errors.Is(err, detector.ErrUnknownAlgorithm) {
			ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		c.log.Error("history query failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load history"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// Feedback records a reviewer verdict against a stored result.
func (c *Controller) Feedback(ctx *gin.Context) {
	var req FeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	anomalyID, err := uuid.Parse(req.AnomalyID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse{Error: "anomaly_id must be a UUID"})
		return
	}

	record, err := c.engine.Feedback(ctx.Request.Context(), anomalyID, req.FeedbackType, req.UserComment)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, errorResponse{Error: "anomaly not found"})
			return
		}
		c.log.Error("feedback failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to record feedback"})
		return
	}
	ctx.JSON(http.StatusCreated, record)
}

// Status summarizes engine health.
func (c *Controller) Status(ctx *gin.Context) {
	status, err := c.engine.Status(ctx.Request.Context())
	if err != nil {
		c.log.Error("status query failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load status"})
		return
	}
	ctx.JSON(http.StatusOK, status)
}

// Report builds an activity summary. format=text renders a plain-text block;
// the default is JSON.
func (c *Controller) Report(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	results, err := c.engine.History(reqCtx, 1000, "")
	if err == nil {
		var metrics []*detector.ModelMetrics
		metrics, err = c.engine.Metrics(reqCtx)
		if err == nil {
			doc := report.Build(results, metrics)
			if ctx.Query("format") == "text" {
				ctx.String(http.StatusOK, doc.Render())
			} else {
				ctx.JSON(http.StatusOK, doc)
			}
			return
		}
	}
	c.log.Error("report build failed: %v", err)
	ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to build report"})
}
