package main

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tableside/internal/models"
	"tableside/internal/session"
)

func TestRenderCart(t *testing.T) {
	c := models.CartState{
		Lines: []models.CartLine{
			{ItemName: "Burger", UnitPrice: decimal.RequireFromString("12"), Quantity: 2, Modifications: []string{"no onion"}},
		},
		Subtotal: decimal.RequireFromString("24"),
		Tax:      decimal.RequireFromString("1.68"),
		Total:    decimal.RequireFromString("25.68"),
	}
	out := renderCart(c)
	assert.Contains(t, out, "2 x Burger (no onion)  $24.00")
	assert.Contains(t, out, "Total $25.68")
}

func TestApplyEvents(t *testing.T) {
	m := initialModel(NewApiClient("http://localhost:8080"))

	m.apply(session.Event{Kind: session.EventText, TurnID: "t", Text: "One "})
	m.apply(session.Event{Kind: session.EventText, TurnID: "t", Text: "burger."})
	m.apply(session.Event{Kind: session.EventCart, TurnID: "t", Cart: &models.CartState{}})
	m.apply(session.Event{Kind: session.EventSettled, TurnID: "t", Outcome: session.Completed})

	assert.False(t, m.waiting)
	assert.NotNil(t, m.cart)
	assert.Len(t, m.transcript, 1)
	assert.Contains(t, m.transcript[0], "One burger.")

	m.waiting = true
	m.apply(session.Event{Kind: session.EventSettled, TurnID: "u", Outcome: session.Failed, Text: session.ApologyReply})
	assert.Contains(t, m.transcript[1], session.ApologyReply)
}
