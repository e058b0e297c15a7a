package session

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/config"
	"tableside/internal/models"
)

func TestManagerCreateAndAuthorize(t *testing.T) {
	f := newFixture(t, &scriptedModel{})

	s, token, err := f.manager.Create()
	require.NoError(t, err)
	other, otherToken, err := f.manager.Create()
	require.NoError(t, err)
	assert.Equal(t, 2, f.manager.Len())

	got, err := f.manager.Authorize(s.ID, token)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = f.manager.Authorize(s.ID, otherToken)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	_, err = f.manager.Authorize(other.ID, "garbage")
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	_, err = f.manager.Get("missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestManagerSweep(t *testing.T) {
	f := newFixture(t, &scriptedModel{})
	idle := f.session(t)
	busySession := f.session(t)
	_, err := busySession.begin(time.Now().Add(-3 * time.Hour))
	require.NoError(t, err)

	f.manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed := f.manager.Sweep()

	assert.Equal(t, 1, removed)
	_, err = f.manager.Get(idle.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	_, err = f.manager.Get(busySession.ID)
	assert.NoError(t, err)
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	signed, err := tokens.Issue("session-1")
	require.NoError(t, err)

	id, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)

	_, err = NewTokens("other-secret", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	expired := NewTokens("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue("session-1")
	require.NoError(t, err)
	_, err = tokens.Verify(old)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestSystemPrompt(t *testing.T) {
	prompt, err := SystemPrompt(config.RestaurantConfig{Name: "Lighthouse Cove"}, testMenu(), decimal.RequireFromString("0.07"))
	require.NoError(t, err)

	assert.Contains(t, prompt, "Lighthouse Cove")
	assert.Contains(t, prompt, `"name": "Lemonade"`)
	assert.Contains(t, prompt, "tax at 7%")
	for _, tool := range []string{"showItem", "showCategory", "searchMenu", "addToCart", "confirmOrder"} {
		assert.True(t, strings.Contains(prompt, tool), tool)
	}
}

func TestWelcomeCopiesPrompts(t *testing.T) {
	r := config.Default().Restaurant
	w := NewWelcome(r)
	w.Prompts[0] = "changed"
	assert.Equal(t, "What drinks do you have?", r.Prompts[0])
	assert.Equal(t, r.Greeting, w.Greeting)
}
