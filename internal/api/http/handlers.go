package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/push/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/push/internal/domain/app"
	"github.com/GriffinCanCode/AgentOS/push/internal/domain/push"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// Version is reported by the health endpoint
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	ctrl    *push.Controller
	apps    *app.Manager
	grants  *Grants
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(ctrl *push.Controller, apps *app.Manager, grants *Grants, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if grants == nil {
		grants = NewGrants(nil, "")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{ctrl: ctrl, apps: apps, grants: grants, metrics: metrics, logger: logger}
}

// RegisterRequest is the body of a registration
type RegisterRequest struct {
	Connection string `json:"connection" binding:"required"`
	Target     string `json:"target" binding:"required"`
	Filter     string `json:"filter"`
}

// Health handles the liveness probe
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pushd",
		"version": Version,
		"push":    h.ctrl.Stats(),
	})
}

// Register registers a connection for an owner
func (h *Handlers) Register(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	check := h.grants.Check(c.GetHeader(middleware.GrantHeader))
	rec, err := h.ctrl.RegisterConnection(c.Request.Context(), owner, req.Target, req.Connection, req.Filter, check)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Unregister removes one connection of an owner
func (h *Handlers) Unregister(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	connection := c.Query("connection")
	if connection == "" {
		badRequest(c, "connection query parameter is required")
		return
	}

	removed, err := h.ctrl.Unregister(c.Request.Context(), owner, connection)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed, "connection": connection})
}

// Take hands the owner its buffered arrivals for one connection
func (h *Handlers) Take(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	connection := c.Query("connection")
	if connection == "" {
		badRequest(c, "connection query parameter is required")
		return
	}

	items, err := h.ctrl.Take(owner, connection)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if items == nil {
		items = []transport.Item{}
	}
	c.JSON(http.StatusOK, gin.H{"connection": connection, "items": items})
}

// ListConnections lists an owner's live connections
func (h *Handlers) ListConnections(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}
	available, _ := strconv.ParseBool(c.DefaultQuery("available", "false"))

	conns := h.ctrl.ListConnections(owner, available)
	if conns == nil {
		conns = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner, "connections": conns})
}

// RemoveOwner drops every registration of an owner
func (h *Handlers) RemoveOwner(c *gin.Context) {
	owner, ok := ownerParam(c)
	if !ok {
		return
	}

	n, err := h.ctrl.UnregisterOwner(c.Request.Context(), owner)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner, "released": n})
}

// ListOwners lists owners holding live registrations
func (h *Handlers) ListOwners(c *gin.Context) {
	owners := h.ctrl.Owners()
	if owners == nil {
		owners = []types.OwnerID{}
	}
	c.JSON(http.StatusOK, gin.H{"owners": owners})
}

// Lookup returns the record holding a connection
func (h *Handlers) Lookup(c *gin.Context) {
	connection := c.Query("connection")
	if connection == "" {
		badRequest(c, "connection query parameter is required")
		return
	}

	rec, ok := h.ctrl.Lookup(connection)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "connection not registered", "code": "not_found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListApps lists launched applications
func (h *Handlers) ListApps(c *gin.Context) {
	var filter *types.State
	if s := c.Query("state"); s != "" {
		st := types.State(s)
		filter = &st
	}
	c.JSON(http.StatusOK, gin.H{
		"apps":  h.apps.List(filter),
		"stats": h.apps.Stats(),
	})
}

// Stats aggregates controller, launcher and HTTP counters
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"push": h.ctrl.Stats(),
		"apps": h.apps.Stats(),
		"http": h.metrics.GetSnapshot(),
	})
}

func ownerParam(c *gin.Context) (types.OwnerID, bool) {
	owner, err := types.ParseOwnerID(c.Param("owner"))
	if err != nil {
		badRequest(c, err.Error())
		return 0, false
	}
	return owner, true
}
