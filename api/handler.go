package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/R-Kotenko/ImbalanceTracker/internal/store"
)

// Handler serves the read-only observability API over the latest-value store.
type Handler struct {
	store  *store.Store
	logger *zap.Logger
}

func NewHandler(store *store.Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// GetPairs lists every pair that has produced at least one metric point.
func (h *Handler) GetPairs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pairs": h.store.Pairs()})
}

// GetImbalance returns the latest metric point for one pair.
func (h *Handler) GetImbalance(c *gin.Context) {
	pair := strings.ToUpper(c.Param("pair"))

	mp, ok := h.store.Metric(pair)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for pair"})
		return
	}
	c.JSON(http.StatusOK, mp)
}

// GetBook returns the latest top-N snapshot for one pair.
func (h *Handler) GetBook(c *gin.Context) {
	pair := strings.ToUpper(c.Param("pair"))

	ob, ok := h.store.Book(pair)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for pair"})
		return
	}
	c.JSON(http.StatusOK, ob)
}
