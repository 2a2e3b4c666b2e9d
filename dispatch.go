package gowemo

import (
	"log/slog"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/wemokit/go-wemo/internal"
	"github.com/wemokit/go-wemo/types"
)

// Call is one validated service call as handed to a Handler: the
// service name, the caller-supplied fields (minus entity_id), and the
// resolved target entity ids.
type Call struct {
	Service   string
	Fields    map[string]any
	EntityIDs []string
}

// Handler is invoked once per accepted call. A returned error is
// logged and the call is dropped; validation failures never reach a
// handler in the first place.
type Handler func(call Call) error

type Item types.Item

func (i Item) Compare(other queue.Item) int {
	if i.Priority > other.(Item).Priority {
		return 1
	} else if i.Priority == other.(Item).Priority {
		return 0
	}
	return -1
}

// enqueue appends a validated call to the pending queue. Priority is
// the arrival time, so the worker drains calls in the order they came
// in.
func (b *Bridge) enqueue(call Call) {
	err := b.pending.Put(Item{
		Value:    &call,
		Priority: float64(time.Now().UnixNano()),
	})
	if err != nil {
		slog.Warn("Dropping service call, dispatch queue is disposed", "service", call.Service)
	}
}

// runDispatch drains the pending queue one call at a time, so handlers
// for a bridge never run concurrently with each other.
func runDispatch(b *Bridge) {
	for {
		items, err := b.pending.Get(1)
		if err != nil {
			// Disposed during Close
			slog.Info("Dispatch queue closed, stopping dispatch loop")
			return
		}
		if len(items) == 0 {
			continue
		}

		call := *items[0].(Item).Value.(*Call)
		handler, ok := b.handlers[call.Service]
		if !ok {
			slog.Warn("No handler registered for service", "service", call.Service)
			continue
		}

		if err := handler(call); err != nil {
			slog.Error("Service handler failed",
				"service", call.Service,
				"handler", internal.GetFunctionName(handler),
				"err", err)
		}
	}
}
