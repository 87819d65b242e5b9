package calendar

// Endpoint names which end of a booking is being moved.
type Endpoint string

const (
	EndpointStart Endpoint = "start"
	EndpointEnd   Endpoint = "end"
)

// Label is the wording used in drag hints.
func (e Endpoint) Label() string {
	if e == EndpointEnd {
		return "return"
	}
	return "pickup"
}

// Drag is the drag-and-drop state: either NoDrag or DraggingEndpoint.
type Drag interface {
	isDrag()
}

// NoDrag means no endpoint is being moved.
type NoDrag struct{}

// DraggingEndpoint is an in-progress move of one booking's start or end.
type DraggingEndpoint struct {
	Kind      Endpoint
	BookingID string
}

func (NoDrag) isDrag()           {}
func (DraggingEndpoint) isDrag() {}

// Hint is the status text shown while a drag is active.
func (d DraggingEndpoint) Hint() string {
	return "Dragging " + d.Kind.Label() + " date… Drop on a day tile."
}
