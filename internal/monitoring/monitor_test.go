package monitoring

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_RecordTurn(t *testing.T) {
	m := NewMonitor()
	m.RecordTurn("completed", 2*time.Second)
	m.RecordTurn("completed", time.Second)
	m.RecordTurn("failed", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.turns.WithLabelValues("cancelled")))
}

func TestMonitor_RecordToolAndConfirmation(t *testing.T) {
	m := NewMonitor()
	m.RecordTool("addToCart", ToolAdmitted)
	m.RecordTool("addToCart", ToolDuplicate)
	m.RecordTool("confirmOrder", ToolRejected)
	m.RecordConfirmation(false)
	m.RecordConfirmation(true)
	m.SetActiveSessions(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolInvocations.WithLabelValues("addToCart", ToolDuplicate)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersConfirmed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.totalDrift))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeSessions))
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor()
	m.RecordConfirmation(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tableside_orders_confirmed_total 1")
	assert.Contains(t, string(body), "tableside_active_sessions 0")
}
