package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wemokit/go-wemo/internal"
)

var ErrInvalidToken = errors.New("invalid authentication token")

// Connection is a wrapper around a WebSocket connection to the
// automation platform that provides a mutex for thread safety.
type Connection struct {
	Conn  *websocket.Conn // Note: this is not thread safe except for Close() and WriteControl()
	mutex sync.Mutex
}

// WriteMessage writes a message to the WebSocket connection.
func (w *Connection) WriteMessage(msg any) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.Conn.WriteJSON(msg)
}

// ReadMessageRaw reads a raw message from the WebSocket connection.
func ReadMessageRaw(conn *websocket.Conn) ([]byte, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ReadMessage reads a message from the WebSocket connection and unmarshals it into the given type.
func ReadMessage[T any](conn *websocket.Conn) (T, error) {
	var result T
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return result, err
	}

	err = json.Unmarshal(msg, &result)
	if err != nil {
		return result, err
	}

	return result, nil
}

// ConnectionFromURI creates a new WebSocket connection from the given base URL and authentication token.
func ConnectionFromURI(baseURL *url.URL, token string) (*Connection, context.Context, context.CancelFunc, error) {
	// Build the WebSocket URL
	urlWebsockets := *baseURL
	urlWebsockets.Path = "/api/websocket"
	scheme, err := internal.GetEquivalentWebsocketScheme(baseURL.Scheme)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build WebSocket URL: %w", err)
	}
	urlWebsockets.Scheme = scheme

	// Create a short timeout context for the connection only
	connCtx, connCtxCancel := context.WithTimeout(context.Background(), time.Second*3)
	defer connCtxCancel()

	// Init WebSocket connection
	dialer := websocket.DefaultDialer
	conn, _, err := dialer.DialContext(connCtx, urlWebsockets.String(), nil)
	if err != nil {
		slog.Error("Failed to connect to WebSocket. Check URI", "url", urlWebsockets)
		return nil, nil, nil, err
	}

	// Read auth_required message
	msg, err := ReadMessage[struct {
		MsgType string `json:"type"`
	}](conn)
	if err != nil {
		slog.Error("Unknown error creating WebSocket client")
		return nil, nil, nil, err
	} else if msg.MsgType != "auth_required" {
		slog.Error("Expected auth_required message, got", "msgType", msg.MsgType)
		return nil, nil, nil, fmt.Errorf("expected auth_required message, got %s", msg.MsgType)
	}

	// Send auth message
	err = sendAuthMessage(conn, token)
	if err != nil {
		slog.Error("Unknown error creating WebSocket client")
		return nil, nil, nil, err
	}

	// Verify auth message was successful
	err = verifyAuthResponse(conn)
	if err != nil {
		slog.Error("Auth token is invalid. Please double check it or create a new token in your platform profile")
		return nil, nil, nil, err
	}

	// Create a new background context for the bridge lifecycle (no timeout)
	bridgeCtx, bridgeCtxCancel := context.WithCancel(context.Background())

	return &Connection{Conn: conn}, bridgeCtx, bridgeCtxCancel, nil
}

// sendAuthMessage sends an auth message to the WebSocket connection.
func sendAuthMessage(conn *websocket.Conn, token string) error {
	type AuthMessage struct {
		MsgType     string `json:"type"`
		AccessToken string `json:"access_token"`
	}

	return conn.WriteJSON(AuthMessage{MsgType: "auth", AccessToken: token})
}

// verifyAuthResponse verifies that the auth response is valid.
func verifyAuthResponse(conn *websocket.Conn) error {
	msg, err := ReadMessage[struct {
		MsgType string `json:"type"`
		Message string `json:"message"`
	}](conn)
	if err != nil {
		return err
	}

	if msg.MsgType != "auth_ok" {
		return ErrInvalidToken
	}

	return nil
}

// SubscribeToServiceCalls asks the platform to stream call_service
// events over this connection. Every service call made anywhere on the
// platform arrives as an event; filtering for our integration happens
// on our side.
func SubscribeToServiceCalls(id int64, conn *Connection) error {
	type subEvent struct {
		Id        int64  `json:"id"`
		Type      string `json:"type"`
		EventType string `json:"event_type"`
	}

	e := subEvent{
		Id:        id,
		Type:      "subscribe_events",
		EventType: "call_service",
	}

	if err := conn.WriteMessage(e); err != nil {
		return fmt.Errorf("error writing to WebSocket: %w", err)
	}
	return nil
}
