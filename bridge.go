// Package gowemo bridges WeMo service calls from a Home Assistant
// style automation platform to handler code running in this process.
// The bridge carries the integration's service schema, validates
// incoming calls against it, and dispatches accepted calls to
// registered handlers.
package gowemo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/wemokit/go-wemo/internal"
	"github.com/wemokit/go-wemo/internal/connect"
	"github.com/wemokit/go-wemo/internal/schema"
	"github.com/wemokit/go-wemo/types"
)

var ErrInvalidArgs = errors.New("invalid arguments provided")

// entityChecker is the part of the HTTP client the bridge needs for
// target resolution.
type entityChecker interface {
	EntityExists(entityId string) (bool, error)
}

type Bridge struct {
	ctx       context.Context
	ctxCancel context.CancelFunc

	// Wraps the ws connection with added mutex locking
	conn *connect.Connection

	httpClient entityChecker

	table    *schema.Table
	handlers map[string]Handler

	// Validated calls waiting for a handler, ordered by arrival.
	pending *queue.PriorityQueue

	subscriptionId int64
}

// NewBridge establishes the WebSocket connection and returns an object
// you can use to register service handlers.
func NewBridge(request types.NewBridgeRequest) (*Bridge, error) {
	if request.URL == "" || request.AuthToken == "" {
		slog.Error("URL and AuthToken are required arguments in NewBridgeRequest")
		return nil, ErrInvalidArgs
	}

	baseURL, err := url.Parse(request.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conn, ctx, ctxCancel, err := connect.ConnectionFromURI(baseURL, request.AuthToken)
	if err != nil {
		return nil, err
	}

	httpClient := internal.NewHttpClient(ctx, baseURL, request.AuthToken)

	return &Bridge{
		conn:       conn,
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		httpClient: httpClient,
		table:      schema.Wemo(),
		handlers:   map[string]Handler{},
		pending:    queue.NewPriorityQueue(100, false),
	}, nil
}

// Schema returns the service table the bridge validates calls against.
func (b *Bridge) Schema() *schema.Table {
	return b.table
}

// RegisterHandler binds a handler to one of the integration's
// services. Registering an unknown service name is an error, as is
// registering the same service twice.
func (b *Bridge) RegisterHandler(service string, handler Handler) error {
	if handler == nil {
		return ErrInvalidArgs
	}
	if _, err := b.table.Get(service); err != nil {
		return err
	}
	if _, ok := b.handlers[service]; ok {
		return fmt.Errorf("handler already registered for service %q", service)
	}
	b.handlers[service] = handler
	return nil
}

func (b *Bridge) Cleanup() {
	if b.ctxCancel != nil {
		b.ctxCancel()
	}
}

// Close performs a clean shutdown of the bridge. It cancels the context, closes the WebSocket connection, and ensures all background processes are properly terminated.
func (b *Bridge) Close() error {
	// Close WebSocket connection if it exists
	if b.conn != nil {
		deadline := time.Now().Add(10 * time.Second)
		err := b.conn.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		if err != nil {
			slog.Warn("Error writing close message", "error", err)
			return err
		}

		err = b.conn.Conn.Close()
		if err != nil {
			slog.Warn("Error closing WebSocket connection", "error", err)
			return err
		}
	}

	// Wait a short time for the WebSocket connection to close
	time.Sleep(500 * time.Millisecond)

	// Cancel context to signal all goroutines to stop
	if b.ctxCancel != nil {
		b.ctxCancel()
	}

	// Unblock the dispatch worker
	if b.pending != nil {
		b.pending.Dispose()
	}

	// Wait a short time for goroutines to finish
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Start subscribes to the platform's call_service event stream and
// runs the receive/dispatch loop until Close is called or the
// connection drops.
func (b *Bridge) Start() error {
	slog.Info("Starting", "services", len(b.table.List()))
	slog.Info("Starting", "handlers", len(b.handlers))

	// subscribe to call_service events
	id := internal.NextId()
	if err := connect.SubscribeToServiceCalls(id, b.conn); err != nil {
		return err
	}
	b.subscriptionId = id

	go runDispatch(b)

	elChan := make(chan connect.ChannelMessage, 100) // Add buffer to prevent channel overflow
	go connect.ListenWebsocket(b.conn.Conn, elChan)

	for {
		select {
		case msg, ok := <-elChan:
			if !ok {
				slog.Info("WebSocket channel closed, stopping main loop")
				return nil
			}
			if msg.Id == b.subscriptionId && msg.Type == "event" {
				b.acceptServiceCall(msg.Raw)
			}
		case <-b.ctx.Done():
			slog.Info("Context cancelled, stopping main loop")
			return nil
		}
	}
}

// acceptServiceCall parses, filters, validates, and enqueues one
// call_service event. Calls that fail validation are rejected here:
// logged and dropped, never retried.
func (b *Bridge) acceptServiceCall(raw []byte) {
	call, err := connect.ParseServiceCall(raw)
	if err != nil {
		slog.Error("Failed to parse call_service event", "err", err)
		return
	}

	// Every platform service call arrives on the subscription; only
	// ours are of interest.
	if call.Domain != schema.Integration {
		return
	}

	if err := b.table.Validate(call.Service, call.Data); err != nil {
		slog.Warn("Rejected service call", "service", call.Service, "err", err)
		return
	}

	targets, err := b.resolveTargets(call)
	if err != nil {
		slog.Warn("Rejected service call", "service", call.Service, "err", err)
		return
	}

	b.enqueue(Call{
		Service:   call.Service,
		Fields:    call.Data,
		EntityIDs: targets,
	})
}

// resolveTargets checks each targeted entity against the definition's
// target selector: the entity's domain must match, and the entity must
// exist on the platform.
func (b *Bridge) resolveTargets(call *connect.ServiceCall) ([]string, error) {
	def, err := b.table.Get(call.Service)
	if err != nil {
		return nil, err
	}

	for _, entityId := range call.EntityIDs {
		domain, _, found := strings.Cut(entityId, ".")
		if !found || domain != def.Target.Domain {
			return nil, fmt.Errorf("entity %q is outside the %s domain targeted by %s", entityId, def.Target.Domain, call.Service)
		}
		if b.httpClient != nil {
			exists, err := b.httpClient.EntityExists(entityId)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve entity %q: %w", entityId, err)
			}
			if !exists {
				return nil, fmt.Errorf("entity %q does not exist", entityId)
			}
		}
	}
	return call.EntityIDs, nil
}
