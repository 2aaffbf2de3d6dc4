package order

// OrderState implements the state pattern for order lifecycle transitions.
// Allowed edges:
//
//	pending -> confirmed -> processing -> shipped -> delivered
//	pending | confirmed | processing -> cancelled
//	delivered -> returned
//
// Every other edge, including a same-status move, is rejected.
type OrderState interface {
	Status() Status
	Confirm(o *Order) (OrderState, error)
	StartProcessing(o *Order) (OrderState, error)
	Ship(o *Order, s Shipment) (OrderState, error)
	Deliver(o *Order) (OrderState, error)
	Cancel(o *Order, reason string) (OrderState, error)
	Return(o *Order) (OrderState, error)
}

func stateFor(s Status) (OrderState, error) {
	switch s {
	case StatusPending:
		return pendingState{}, nil
	case StatusConfirmed:
		return confirmedState{}, nil
	case StatusProcessing:
		return processingState{}, nil
	case StatusShipped:
		return shippedState{}, nil
	case StatusDelivered:
		return deliveredState{}, nil
	case StatusCancelled:
		return cancelledState{}, nil
	case StatusReturned:
		return returnedState{}, nil
	}
	return nil, ErrUnknownStatus
}

// terminal rejects every transition; concrete states embed it and override the edges they allow.
type terminal struct{}

func (terminal) Confirm(*Order) (OrderState, error)         { return nil, ErrInvalidStateTransition }
func (terminal) StartProcessing(*Order) (OrderState, error) { return nil, ErrInvalidStateTransition }
func (terminal) Ship(*Order, Shipment) (OrderState, error)  { return nil, ErrInvalidStateTransition }
func (terminal) Deliver(*Order) (OrderState, error)         { return nil, ErrInvalidStateTransition }
func (terminal) Cancel(*Order, string) (OrderState, error)  { return nil, ErrInvalidStateTransition }
func (terminal) Return(*Order) (OrderState, error)          { return nil, ErrInvalidStateTransition }

func cancel(o *Order, reason string) (OrderState, error) {
	o.CancelReason = reason
	return cancelledState{}, nil
}

type pendingState struct{ terminal }

func (pendingState) Status() Status { return StatusPending }

func (pendingState) Confirm(*Order) (OrderState, error) { return confirmedState{}, nil }

func (pendingState) Cancel(o *Order, reason string) (OrderState, error) { return cancel(o, reason) }

type confirmedState struct{ terminal }

func (confirmedState) Status() Status { return StatusConfirmed }

func (confirmedState) StartProcessing(*Order) (OrderState, error) { return processingState{}, nil }

func (confirmedState) Cancel(o *Order, reason string) (OrderState, error) { return cancel(o, reason) }

type processingState struct{ terminal }

func (processingState) Status() Status { return StatusProcessing }

func (processingState) Ship(o *Order, s Shipment) (OrderState, error) {
	o.Shipment = &s
	return shippedState{}, nil
}

func (processingState) Cancel(o *Order, reason string) (OrderState, error) { return cancel(o, reason) }

type shippedState struct{ terminal }

func (shippedState) Status() Status { return StatusShipped }

func (shippedState) Deliver(*Order) (OrderState, error) { return deliveredState{}, nil }

type deliveredState struct{ terminal }

func (deliveredState) Status() Status { return StatusDelivered }

func (deliveredState) Return(*Order) (OrderState, error) { return returnedState{}, nil }

type cancelledState struct{ terminal }

func (cancelledState) Status() Status { return StatusCancelled }

type returnedState struct{ terminal }

func (returnedState) Status() Status { return StatusReturned }
