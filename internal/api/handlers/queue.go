package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkfold/printq/internal/agent"
	"github.com/inkfold/printq/internal/queue"
	"github.com/inkfold/printq/internal/store"
)

// QueueService is the slice of the agent the HTTP surface drives.
type QueueService interface {
	Queue(ctx context.Context) ([]queue.Job, error)
	Problems(ctx context.Context) ([]queue.ProblemReport, error)
	Report(ctx context.Context) (string, error)
	AddOrder(ctx context.Context, job queue.Job) (queue.Job, error)
	RunCycle(ctx context.Context) (agent.CycleResult, error)
	History(ctx context.Context, limit int) ([]store.CycleRecord, error)
}

// Extractor turns a free-text order description into a structured job.
type Extractor interface {
	Extract(ctx context.Context, text string) (queue.Job, error)
}

type CreateOrderRequest struct {
	Text        string `json:"text"`
	OrderID     string `json:"order_id"`
	Customer    string `json:"customer"`
	Quantity    string `json:"quantity"`
	Deadline    string `json:"deadline"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

type HistoryQuery struct {
	Limit int `form:"limit" binding:"max=100"`
}

type QueueHandler struct {
	service   QueueService
	extractor Extractor
}

func NewQueueHandler(service QueueService, extractor Extractor) *QueueHandler {
	return &QueueHandler{
		service:   service,
		extractor: extractor,
	}
}

func (h *QueueHandler) GetQueue(c *gin.Context) {
	jobs, err := h.service.Queue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

func (h *QueueHandler) GetReport(c *gin.Context) {
	report, err := h.service.Report(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		return
	}

	c.String(http.StatusOK, report)
}

func (h *QueueHandler) GetProblems(c *gin.Context) {
	problems, err := h.service.Problems(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to scan queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"problems": problems,
		"count":    len(problems),
	})
}

func (h *QueueHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var job queue.Job
	if req.Text != "" {
		if h.extractor == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order extraction is not configured"})
			return
		}
		extracted, err := h.extractor.Extract(c.Request.Context(), req.Text)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to extract order fields"})
			return
		}
		job = extracted
	} else {
		if req.Customer == "" && req.Description == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "either text or order fields are required"})
			return
		}
		job = queue.Job{
			OrderID:     req.OrderID,
			Customer:    req.Customer,
			Quantity:    req.Quantity,
			Deadline:    req.Deadline,
			Priority:    req.Priority,
			Description: req.Description,
		}
	}

	added, err := h.service.AddOrder(c.Request.Context(), job)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":   added,
		"message": "order added to queue",
	})
}

func (h *QueueHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")

	jobs, err := h.service.Queue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load queue"})
		return
	}

	for _, job := range jobs {
		if job.OrderID == id {
			c.JSON(http.StatusOK, job)
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
}

func (h *QueueHandler) RunCycle(c *gin.Context) {
	result, err := h.service.RunCycle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *QueueHandler) ListCycles(c *gin.Context) {
	var query HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if query.Limit <= 0 {
		query.Limit = 10
	}

	cycles, err := h.service.History(c.Request.Context(), query.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load cycle history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cycles": cycles,
		"count":  len(cycles),
	})
}

func (h *QueueHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/queue", h.GetQueue)
	r.GET("/queue/report", h.GetReport)
	r.GET("/problems", h.GetProblems)
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/cycle", h.RunCycle)
	r.GET("/cycles", h.ListCycles)
}
