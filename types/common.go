package types

// Item represents a priority queue item with a value and priority.
type Item struct {
	Value    interface{}
	Priority float64
}
