package websocket

import "errors"

var (
	ErrClientQueueFull   = errors.New("client message queue is full")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrInvalidMessage    = errors.New("invalid message format")
	ErrDeliveryFailed    = errors.New("message could not be delivered")
)

type DenialKind int

const (
	DenialForbidden DenialKind = iota
	DenialNotFound
	// DenialUnavailable ошибка базы при чтении, отдается как отказ
	DenialUnavailable
)

func (k DenialKind) String() string {
	switch k {
	case DenialNotFound:
		return "not_found"
	case DenialUnavailable:
		return "unavailable"
	default:
		return "forbidden"
	}
}

// DenialError отказ в доступе от Gate.Authorize
type DenialError struct {
	Kind    DenialKind
	Action  Action
	Message string
	Err     error
}

func (e *DenialError) Error() string { return e.Message }

func (e *DenialError) Unwrap() error { return e.Err }

// IsDenial проверяет, является ли ошибка отказом в доступе
func IsDenial(err error) (*DenialError, bool) {
	var d *DenialError
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
