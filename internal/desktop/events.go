package desktop

type EventType int

const (
	EventTick EventType = iota
	EventResize
	EventClick
	EventDrag
	EventScroll
	EventClose
)

type Event struct {
	Type          EventType
	// X, Y carry the drag delta or scroll offset.
	X, Y          float64
	// Width, Height carry the window size for EventResize and the window
	// height for drags.
	Width, Height int
	Button        Button
}

type Button int

const (
	ButtonNone Button = iota
	ButtonRotate
	ButtonPan
)

type EventHandler func(Event)

// EventBus fans host events out to subscribers on the render thread.
type EventBus struct {
	handlers map[EventType][]EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

func (eb *EventBus) Subscribe(t EventType, fn EventHandler) {
	eb.handlers[t] = append(eb.handlers[t], fn)
}

func (eb *EventBus) Emit(e Event) {
	for _, fn := range eb.handlers[e.Type] {
		fn(e)
	}
}
