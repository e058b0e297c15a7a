package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"tableside/internal/models"
	"tableside/internal/session"
)

// GetWelcome returns the greeting and suggested prompts
func (a *OrderAPI) GetWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, a.welcome)
}

// GetMenu returns the catalog
func (a *OrderAPI) GetMenu(c *gin.Context) {
	c.JSON(http.StatusOK, a.driver.Menu())
}

// CreateSession starts a session and hands out its token
func (a *OrderAPI) CreateSession(c *gin.Context) {
	s, token, err := a.sessions.Create()
	if err != nil {
		a.log.WithError(err).Error("failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": s.ID, "token": token, "welcome": a.welcome})
}

// PostTurn runs a turn and returns every event it produced
func (a *OrderAPI) PostTurn(c *gin.Context) {
	s := current(c)

	var req session.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := a.driver.Turn(c.Request.Context(), s, req)
	switch {
	case errors.Is(err, models.ErrEmptyInput):
		c.JSON(http.StatusOK, gin.H{
			"events": []session.Event{{Kind: session.EventNotice, Text: session.EmptyInputReply}},
			"cart":   s.Cart(),
		})
		return
	case err != nil:
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	collected := make([]session.Event, 0, 8)
	for ev := range events {
		collected = append(collected, ev)
	}

	resp := gin.H{"events": collected, "cart": s.Cart()}
	if conf, ok := s.Confirmation(); ok {
		resp["confirmation"] = conf
	}
	c.JSON(http.StatusOK, resp)
}

// GetCart returns the session cart
func (a *OrderAPI) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Cart())
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// SetLineQuantity changes a line's quantity; zero or less removes it
func (a *OrderAPI) SetLineQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agg := a.driver.Aggregator()
	line := c.Param("line")
	state, err := current(c).UpdateCart(func(s models.CartState) (models.CartState, error) {
		return agg.SetQuantity(s, line, *req.Quantity)
	})
	a.respondCart(c, state, err)
}

// RemoveLine drops a line from the cart
func (a *OrderAPI) RemoveLine(c *gin.Context) {
	agg := a.driver.Aggregator()
	line := c.Param("line")
	state, err := current(c).UpdateCart(func(s models.CartState) (models.CartState, error) {
		return agg.Remove(s, line)
	})
	a.respondCart(c, state, err)
}

// ClearCart empties the cart
func (a *OrderAPI) ClearCart(c *gin.Context) {
	agg := a.driver.Aggregator()
	state, err := current(c).UpdateCart(func(s models.CartState) (models.CartState, error) {
		return agg.Clear(s), nil
	})
	a.respondCart(c, state, err)
}

func (a *OrderAPI) respondCart(c *gin.Context, state models.CartState, err error) {
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetConfirmation returns the latest order confirmation
func (a *OrderAPI) GetConfirmation(c *gin.Context) {
	conf, ok := current(c).Confirmation()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no order confirmed yet"})
		return
	}
	c.JSON(http.StatusOK, conf)
}

type invocationRequest struct {
	MessageID string              `json:"messageId"`
	ToolName  string              `json:"toolName"`
	Arguments jsoniter.RawMessage `json:"arguments"`
}

// MirrorInvocation applies a tool invocation the storefront received from
// elsewhere. Redelivery answers admitted:false.
func (a *OrderAPI) MirrorInvocation(c *gin.Context) {
	s := current(c)

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req invocationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invocation body"})
		return
	}
	if req.MessageID == "" || req.ToolName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messageId and toolName are required"})
		return
	}

	applied := a.driver.Apply(s, req.MessageID, "", req.ToolName, req.Arguments)
	if models.IsValidation(applied.Err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": applied.Err.Error(), "admitted": applied.Admitted})
		return
	}

	a.log.WithFields(logrus.Fields{
		"session_id":    s.ID,
		"invocation_id": applied.Invocation.ID,
		"admitted":      applied.Admitted,
	}).Debug("invocation mirrored")

	c.JSON(http.StatusOK, gin.H{
		"admitted":     applied.Admitted,
		"invocationId": applied.Invocation.ID,
		"events":       applied.Events(),
		"cart":         s.Cart(),
	})
}
