// Package api serves the ordering HTTP and websocket endpoints.
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"tableside/internal/models"
	"tableside/internal/monitoring"
	"tableside/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const sessionKey = "session"

// OrderAPI represents the main API handler for ordering sessions
type OrderAPI struct {
	Router   *gin.Engine
	sessions *session.Manager
	driver   *session.Driver
	welcome  session.Welcome
	monitor  *monitoring.Monitor
	log      *logrus.Logger
}

// NewOrderAPI creates a new ordering API instance
func NewOrderAPI(sessions *session.Manager, driver *session.Driver, welcome session.Welcome, monitor *monitoring.Monitor, log *logrus.Logger) *OrderAPI {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	api := &OrderAPI{
		Router:   router,
		sessions: sessions,
		driver:   driver,
		welcome:  welcome,
		monitor:  monitor,
		log:      log,
	}

	api.setupRoutes()
	return api
}

// setupRoutes configures all API endpoints
func (a *OrderAPI) setupRoutes() {
	a.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"sessions":       a.sessions.Len(),
			"uptime_seconds": int64(a.monitor.Uptime().Seconds()),
		})
	})

	v1 := a.Router.Group("/api/v1")
	{
		v1.GET("/welcome", a.GetWelcome)
		v1.GET("/menu", a.GetMenu)
		v1.POST("/sessions", a.CreateSession)

		s := v1.Group("/sessions/:id", a.requireSession)
		{
			s.POST("/turns", a.PostTurn)
			s.GET("/ws", a.StreamTurns)

			s.GET("/cart", a.GetCart)
			s.PATCH("/cart/lines/:line", a.SetLineQuantity)
			s.DELETE("/cart/lines/:line", a.RemoveLine)
			s.DELETE("/cart", a.ClearCart)

			s.GET("/confirmation", a.GetConfirmation)
			s.POST("/invocations", a.MirrorInvocation)
		}
	}
}

// requireSession resolves the path session and checks the bearer token
// against it. Websocket clients may pass the token as a query parameter.
func (a *OrderAPI) requireSession(c *gin.Context) {
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": models.ErrInvalidToken.Error()})
		return
	}

	s, err := a.sessions.Authorize(c.Param("id"), token)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Set(sessionKey, s)
	c.Next()
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case models.IsValidation(err), errors.Is(err, models.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTurnInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("request handled")
	}
}
