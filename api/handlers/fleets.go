package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetscale/fleetd/internal/analyzer"
	"github.com/fleetscale/fleetd/pkg/database/queries"
	"github.com/fleetscale/fleetd/pkg/models"
	"github.com/gin-gonic/gin"
)

// FleetManager is the view of the orchestrator the API needs. The
// orchestrator satisfies it.
type FleetManager interface {
	ListRunningFleets() []string
	Balance(fleetID string) (*analyzer.Report, error)
	Elasticity(fleetID string) (models.ElasticityScore, error)
	Trust(fleetID string) (float64, error)
	LastDecision(fleetID string) (*models.ScalingDecision, error)
	Cooldowns(fleetID string) (models.CooldownSnapshot, error)
	SubscribeAllEvents() <-chan *models.Event
}

type FleetHandler struct {
	manager       FleetManager
	decisionRepo  *queries.DecisionRepository
	elasticityRepo *queries.ElasticityRepository
	defaultLimit  int
	maxLimit      int
}

func NewFleetHandler(manager FleetManager, decisionRepo *queries.DecisionRepository, elasticityRepo *queries.ElasticityRepository, defaultLimit, maxLimit int) *FleetHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &FleetHandler{
		manager:        manager,
		decisionRepo:   decisionRepo,
		elasticityRepo: elasticityRepo,
		defaultLimit:   defaultLimit,
		maxLimit:       maxLimit,
	}
}

func (h *FleetHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fleets": h.manager.ListRunningFleets(),
	})
}

type FleetStatusResponse struct {
	FleetID      string                   `json:"fleet_id"`
	Balance      *analyzer.Report         `json:"balance,omitempty"`
	LastDecision *models.ScalingDecision  `json:"last_decision,omitempty"`
	Cooldowns    models.CooldownSnapshot  `json:"cooldowns"`
	Trust        float64                  `json:"trust"`
}

func (h *FleetHandler) GetStatus(c *gin.Context) {
	fleetID := c.Param("id")

	balance, err := h.manager.Balance(fleetID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	cooldowns, _ := h.manager.Cooldowns(fleetID)
	trust, _ := h.manager.Trust(fleetID)
	lastDecision, _ := h.manager.LastDecision(fleetID)

	c.JSON(http.StatusOK, FleetStatusResponse{
		FleetID:      fleetID,
		Balance:      balance,
		LastDecision: lastDecision,
		Cooldowns:    cooldowns,
		Trust:        trust,
	})
}

func (h *FleetHandler) GetElasticity(c *gin.Context) {
	fleetID := c.Param("id")

	score, err := h.manager.Elasticity(fleetID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fleet_id":   fleetID,
		"elasticity": score,
	})
}

func (h *FleetHandler) GetDecisions(c *gin.Context) {
	if h.decisionRepo == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "decision history requires the database"})
		return
	}

	fleetID := c.Param("id")
	limit := h.parseLimit(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	decisions, err := h.decisionRepo.GetByFleet(ctx, fleetID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query decisions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fleet_id":  fleetID,
		"decisions": decisions,
	})
}

func (h *FleetHandler) GetElasticityHistory(c *gin.Context) {
	if h.elasticityRepo == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "elasticity history requires the database"})
		return
	}

	fleetID := c.Param("id")
	limit := h.parseLimit(c)
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		since = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	records, err := h.elasticityRepo.GetByFleet(ctx, fleetID, since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query elasticity records"})
		return
	}

	stats, err := h.elasticityRepo.GetStats(ctx, fleetID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query elasticity stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fleet_id": fleetID,
		"records":  records,
		"stats":    stats,
	})
}

func (h *FleetHandler) parseLimit(c *gin.Context) int {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit
}
