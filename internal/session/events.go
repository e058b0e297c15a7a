package session

import (
	"tableside/internal/models"
	"tableside/internal/tools"
)

// EventKind tags a turn event
type EventKind string

const (
	EventText          EventKind = "text"
	EventToolResult    EventKind = "tool_result"
	EventToolRejected  EventKind = "tool_rejected"
	EventToolDuplicate EventKind = "tool_duplicate"
	EventCart          EventKind = "cart"
	EventConfirmation  EventKind = "confirmation"
	EventNotice        EventKind = "notice"
	EventSettled       EventKind = "settled"
)

// Outcome is how a turn settled
type Outcome string

const (
	Completed Outcome = "completed"
	Failed    Outcome = "failed"
	Cancelled Outcome = "cancelled"
)

// Event is one thing the client renderer should show. Settled is always the
// last event of a turn.
type Event struct {
	Kind         EventKind                 `json:"kind"`
	TurnID       string                    `json:"turnId"`
	Text         string                    `json:"text,omitempty"`
	Tool         tools.Name                `json:"tool,omitempty"`
	InvocationID string                    `json:"invocationId,omitempty"`
	Result       interface{}               `json:"result,omitempty"`
	Error        string                    `json:"error,omitempty"`
	Cart         *models.CartState         `json:"cart,omitempty"`
	Confirmation *models.OrderConfirmation `json:"confirmation,omitempty"`
	Outcome      Outcome                   `json:"outcome,omitempty"`
}

// CategoryResult answers a searchMenu query that names a category
type CategoryResult struct {
	Category string            `json:"category"`
	Items    []models.MenuItem `json:"items"`
}

// SearchResults answers any other searchMenu query
type SearchResults struct {
	Results []models.MenuHit `json:"results"`
}
