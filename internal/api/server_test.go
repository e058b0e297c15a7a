package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableside/internal/cart"
	"tableside/internal/config"
	"tableside/internal/llm"
	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/monitoring"
	"tableside/internal/order"
	"tableside/internal/session"
)

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	os.Exit(m.Run())
}

// replayModel answers every turn with the same chunks
type replayModel struct {
	chunks []llm.Chunk
}

func (m *replayModel) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		for _, c := range m.chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func newTestAPI(t *testing.T, chunks ...llm.Chunk) *OrderAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Discard()
	monitor := monitoring.NewMonitor()
	menu := &models.Menu{Categories: []models.MenuCategory{
		{Name: "Burgers", Items: []models.MenuItem{{Name: "Burger", Price: decimal.RequireFromString("12.00")}}},
	}}
	agg := cart.NewAggregator(cart.DefaultTaxRate)
	driver := session.NewDriver(&replayModel{chunks: chunks}, menu, agg, order.NewBuilder(cart.DefaultTaxRate), "system", monitor, log)
	manager := session.NewManager(config.SessionConfig{
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
		IdleTTL:     time.Hour,
	}, agg.Empty(), monitor, log)

	return NewOrderAPI(manager, driver, session.NewWelcome(config.Default().Restaurant), monitor, log)
}

func do(t *testing.T, api *OrderAPI, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewBufferString(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	api.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createSession(t *testing.T, api *OrderAPI) (string, string) {
	t.Helper()
	w := do(t, api, "POST", "/api/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	return body["id"].(string), body["token"].(string)
}

func TestHealthAndWelcome(t *testing.T) {
	api := newTestAPI(t)

	w := do(t, api, "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	health := decode(t, w)
	assert.Equal(t, "ok", health["status"])
	assert.Contains(t, health, "uptime_seconds")

	w = do(t, api, "GET", "/api/v1/welcome", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	welcome := decode(t, w)
	assert.Len(t, welcome["prompts"], 3)

	w = do(t, api, "GET", "/api/v1/menu", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"price":12`)
}

func TestSessionRoutesRequireMatchingToken(t *testing.T) {
	api := newTestAPI(t)
	id, token := createSession(t, api)
	otherID, _ := createSession(t, api)

	assert.Equal(t, http.StatusUnauthorized, do(t, api, "GET", "/api/v1/sessions/"+id+"/cart", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, api, "GET", "/api/v1/sessions/"+otherID+"/cart", token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, api, "GET", "/api/v1/sessions/"+id+"/cart", "forged", "").Code)
	assert.Equal(t, http.StatusOK, do(t, api, "GET", "/api/v1/sessions/"+id+"/cart", token, "").Code)
}

func TestPostTurn(t *testing.T) {
	api := newTestAPI(t,
		llm.Chunk{Text: "One burger coming up."},
		llm.Chunk{ToolCall: &llm.ToolCall{ID: "c1", Name: "addToCart", Arguments: `{"name":"Burger","price":12}`}},
		llm.Chunk{ToolCall: &llm.ToolCall{ID: "c2", Name: "confirmOrder", Arguments: `{"items":[{"name":"Burger","price":12}],"subtotal":12,"tax":0.84,"total":12.84,"tableNumber":4}`}},
		llm.Chunk{Final: true},
	)
	id, token := createSession(t, api)

	w := do(t, api, "POST", "/api/v1/sessions/"+id+"/turns", token, `{"text":"a burger and that's all"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)

	events := body["events"].([]interface{})
	last := events[len(events)-1].(map[string]interface{})
	assert.Equal(t, "settled", last["kind"])
	assert.Equal(t, "completed", last["outcome"])

	cartBody := body["cart"].(map[string]interface{})
	assert.Equal(t, 12.84, cartBody["total"])
	conf := body["confirmation"].(map[string]interface{})
	assert.Equal(t, 4.0, conf["tableNumber"])

	w = do(t, api, "GET", "/api/v1/sessions/"+id+"/confirmation", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostTurnEmptyInput(t *testing.T) {
	api := newTestAPI(t)
	id, token := createSession(t, api)

	w := do(t, api, "POST", "/api/v1/sessions/"+id+"/turns", token, `{"text":"   "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "What can I get for you today?")

	w = do(t, api, "GET", "/api/v1/sessions/"+id+"/confirmation", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMirrorInvocationAndCartEdits(t *testing.T) {
	api := newTestAPI(t)
	id, token := createSession(t, api)
	base := "/api/v1/sessions/" + id

	invocation := `{"messageId":"m1","toolName":"addToCart","arguments":{"name":"Burger","price":12,"quantity":2}}`
	w := do(t, api, "POST", base+"/invocations", token, invocation)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["admitted"])

	w = do(t, api, "POST", base+"/invocations", token, invocation)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["admitted"])

	w = do(t, api, "POST", base+"/invocations", token, `{"messageId":"m1","toolName":"addToCart","arguments":{"price":12}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, api, "GET", base+"/cart", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var state models.CartState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 2, state.Lines[0].Quantity)
	line := state.Lines[0].ID

	w = do(t, api, "PATCH", base+"/cart/lines/"+line, token, `{"quantity":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, 5, state.Lines[0].Quantity)
	assert.Equal(t, "64.2", state.Total.String())

	assert.Equal(t, http.StatusBadRequest, do(t, api, "PATCH", base+"/cart/lines/"+line, token, `{}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, api, "DELETE", base+"/cart/lines/nope", token, "").Code)
	assert.Equal(t, http.StatusOK, do(t, api, "DELETE", base+"/cart/lines/"+line, token, "").Code)

	do(t, api, "POST", base+"/invocations", token, `{"messageId":"m2","toolName":"addToCart","arguments":{"name":"Burger","price":12}}`)
	w = do(t, api, "DELETE", base+"/cart", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Empty(t, state.Lines)
}

func TestWebSocketStreamsEvents(t *testing.T) {
	api := newTestAPI(t,
		llm.Chunk{Text: "Sure."},
		llm.Chunk{ToolCall: &llm.ToolCall{ID: "c1", Name: "addToCart", Arguments: `{"name":"Burger","price":12}`}},
		llm.Chunk{Final: true},
	)
	id, token := createSession(t, api)

	srv := httptest.NewServer(api.Router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + id + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"text":"a burger"}`)))

	var got []string
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev session.Event
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &ev))
		got = append(got, string(ev.Kind))
		if ev.Kind == session.EventSettled {
			break
		}
	}
	assert.Equal(t, []string{"text", "tool_result", "cart", "settled"}, got)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"text":""}`)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "What can I get for you today?")
}
