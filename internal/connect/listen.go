package connect

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
)

// BaseMessage is the base message type for all messages sent by the websocket server.
type BaseMessage struct {
	Type    string `json:"type"`
	Id      int64  `json:"id"`
	Success bool   `json:"success"` // not present in all messages
}

type ChannelMessage struct {
	Id      int64
	Type    string
	Success bool
	Raw     []byte
}

// ServiceCall is one call_service event as decoded off the wire: which
// integration domain and service were invoked, the caller-supplied
// fields, and the entity ids the call targets.
type ServiceCall struct {
	Domain    string
	Service   string
	Data      map[string]any
	EntityIDs []string
}

// serviceCallEvent mirrors the platform's call_service event envelope.
type serviceCallEvent struct {
	Event struct {
		EventType string `json:"event_type"`
		Data      struct {
			Domain      string          `json:"domain"`
			Service     string          `json:"service"`
			ServiceData map[string]any  `json:"service_data"`
			Target      json.RawMessage `json:"target"`
		} `json:"data"`
	} `json:"event"`
}

// ParseServiceCall decodes a raw event message into a ServiceCall.
// Target entity ids appear either under target.entity_id (as a string
// or list) or, from older callers, as an entity_id key inside
// service_data; both spellings are accepted and the entity_id key is
// stripped from the returned field map.
func ParseServiceCall(raw []byte) (*ServiceCall, error) {
	var evt serviceCallEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("error unmarshalling call_service event: %w", err)
	}
	if evt.Event.EventType != "call_service" {
		return nil, fmt.Errorf("expected call_service event, got %q", evt.Event.EventType)
	}

	call := &ServiceCall{
		Domain:  evt.Event.Data.Domain,
		Service: evt.Event.Data.Service,
		Data:    evt.Event.Data.ServiceData,
	}
	if call.Data == nil {
		call.Data = map[string]any{}
	}

	if len(evt.Event.Data.Target) > 0 {
		var target struct {
			EntityID json.RawMessage `json:"entity_id"`
		}
		if err := json.Unmarshal(evt.Event.Data.Target, &target); err != nil {
			return nil, fmt.Errorf("error unmarshalling call target: %w", err)
		}
		ids, err := entityIDList(target.EntityID)
		if err != nil {
			return nil, err
		}
		call.EntityIDs = ids
	}

	if raw, ok := call.Data["entity_id"]; ok {
		delete(call.Data, "entity_id")
		switch v := raw.(type) {
		case string:
			call.EntityIDs = append(call.EntityIDs, v)
		case []any:
			for _, id := range v {
				s, ok := id.(string)
				if !ok {
					return nil, fmt.Errorf("entity_id list contains non-string value %v", id)
				}
				call.EntityIDs = append(call.EntityIDs, s)
			}
		default:
			return nil, fmt.Errorf("entity_id has unexpected type %T", raw)
		}
	}

	return call, nil
}

// entityIDList accepts the string-or-list spelling of entity_id.
func entityIDList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("error unmarshalling entity_id: %w", err)
	}
	return many, nil
}

// ListenWebsocket reads messages from the websocket connection and sends them to the channel.
// It will close the channel if it encounters an error, or if the channel is full, and return.
// It ignores errors in deserialization.
func ListenWebsocket(conn *websocket.Conn, c chan ChannelMessage) {
	for {
		raw, err := ReadMessageRaw(conn)
		if err != nil {
			slog.Error("Error reading from websocket", "err", err)
			close(c)
			break
		}

		base := BaseMessage{
			// default to true for messages that don't include "success" at all
			Success: true,
		}
		err = json.Unmarshal(raw, &base)
		if err != nil {
			slog.Error("Error unmarshalling message", "err", err, "message", string(raw))
			continue
		}
		if !base.Success {
			slog.Warn("Received unsuccessful response", "response", string(raw))
		}

		channelMessage := ChannelMessage{
			Type:    base.Type,
			Id:      base.Id,
			Success: base.Success,
			Raw:     raw,
		}

		// Use non-blocking send to avoid hanging on closed channel
		select {
		case c <- channelMessage:
			// Message sent successfully
		default:
			slog.Warn("Websocket message channel is full or closed, stopping listener",
				"channel_capacity", cap(c),
				"channel_length", len(c))
			close(c)
			return
		}
	}
}
