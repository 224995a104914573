package email

import (
	"errors"
	"fmt"
)

var (
	ErrDisabled       = errors.New("email: disabled")
	ErrInvalidConfig  = errors.New("email: invalid config")
	ErrInvalidMessage = errors.New("email: invalid message")
)

// SendError wraps a failure reported by the SMTP server or the connection.
type SendError struct {
	Host string
	Err  error
}

func (e *SendError) Error() string { return fmt.Sprintf("email: send via %s: %v", e.Host, e.Err) }
func (e *SendError) Unwrap() error { return e.Err }
