package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"tableside/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ApiClient talks to the tableside API for one ordering session
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	SessionID  string
	Token      string
	conn       *websocket.Conn
}

// NewApiClient creates a new API client
func NewApiClient(baseURL string) *ApiClient {
	return &ApiClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type sessionResponse struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Welcome session.Welcome `json:"welcome"`
}

// CreateSession starts a session and keeps its credentials
func (c *ApiClient) CreateSession() (session.Welcome, error) {
	resp, err := c.httpClient.Post(c.BaseURL+"/api/v1/sessions", "application/json", bytes.NewReader(nil))
	if err != nil {
		return session.Welcome{}, fmt.Errorf("failed to reach %s: %w", c.BaseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return session.Welcome{}, err
	}
	if resp.StatusCode != http.StatusCreated {
		return session.Welcome{}, fmt.Errorf("create session failed with status code: %d", resp.StatusCode)
	}

	var out sessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return session.Welcome{}, fmt.Errorf("failed to decode session: %w", err)
	}
	c.SessionID, c.Token = out.ID, out.Token
	return out.Welcome, nil
}

// Connect opens the turn websocket and returns the stream of server events.
// The channel closes when the connection drops.
func (c *ApiClient) Connect() (<-chan session.Event, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/v1/sessions/" + c.SessionID + "/ws"
	u.RawQuery = url.Values{"token": {c.Token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open websocket: %w", err)
	}
	c.conn = conn

	events := make(chan session.Event, 64)
	go func() {
		defer close(events)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev session.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			events <- ev
		}
	}()
	return events, nil
}

// Send submits one customer message
func (c *ApiClient) Send(text string) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	data, err := json.Marshal(session.TurnRequest{Text: text})
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the websocket
func (c *ApiClient) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
