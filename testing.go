package elementary

import (
	"sync"

	"github.com/ehrlich-b/elementary/internal/value"
)

// InstructionBuilder assembles a wire-format instruction batch without
// requiring a caller to hand-nest value.Value arrays. It is a
// convenience for Go callers such as tests; elementary-bench nests its
// batch by hand.
type InstructionBuilder struct {
	items []value.Value
}

// NewInstructionBuilder creates an empty batch builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{}
}

func (b *InstructionBuilder) push(args ...value.Value) *InstructionBuilder {
	b.items = append(b.items, value.FromArray(args))
	return b
}

// CreateNode appends a CREATE_NODE instruction.
func (b *InstructionBuilder) CreateNode(id int32, kind string) *InstructionBuilder {
	return b.push(value.FromFloat(float64(CreateNode)), value.FromFloat(float64(id)), value.FromString(kind))
}

// DeleteNode appends a DELETE_NODE instruction.
func (b *InstructionBuilder) DeleteNode(id int32) *InstructionBuilder {
	return b.push(value.FromFloat(float64(DeleteNode)), value.FromFloat(float64(id)))
}

// AppendChild appends an APPEND_CHILD instruction.
func (b *InstructionBuilder) AppendChild(parentID, childID int32) *InstructionBuilder {
	return b.push(value.FromFloat(float64(AppendChild)), value.FromFloat(float64(parentID)), value.FromFloat(float64(childID)))
}

// SetProperty appends a SET_PROPERTY instruction.
func (b *InstructionBuilder) SetProperty(id int32, key string, v value.Value) *InstructionBuilder {
	return b.push(value.FromFloat(float64(SetProperty)), value.FromFloat(float64(id)), value.FromString(key), v)
}

// ActivateRoots appends an ACTIVATE_ROOTS instruction.
func (b *InstructionBuilder) ActivateRoots(ids ...int32) *InstructionBuilder {
	idVals := make([]value.Value, len(ids))
	for i, id := range ids {
		idVals[i] = value.FromFloat(float64(id))
	}
	return b.push(value.FromFloat(float64(ActivateRoots)), value.FromArray(idVals))
}

// CommitUpdates appends a COMMIT_UPDATES instruction.
func (b *InstructionBuilder) CommitUpdates() *InstructionBuilder {
	return b.push(value.FromFloat(float64(CommitUpdates)))
}

// Build returns the assembled batch as the wire-format Value.
func (b *InstructionBuilder) Build() value.Value {
	return value.FromArray(b.items)
}

// RecordedEvent is one event captured by an EventRecorder.
type RecordedEvent struct {
	Kind   string
	Source string
	Data   value.Value
}

// EventRecorder is a test double for ProcessEvents' emit callback: it
// collects every event so a test can assert on them after the fact.
type EventRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder { return &EventRecorder{} }

// Emit is an elementary.Runtime.ProcessEvents-compatible callback.
func (r *EventRecorder) Emit(kind, source string, data value.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Kind: kind, Source: source, Data: data})
}

// Events returns a snapshot of every event recorded so far.
func (r *EventRecorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards every recorded event.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
