package broker

import (
	"time"

	"github.com/pkg/errors"
)

// ErrTimeout is returned by Transport.Receive when no payload arrives
// before the deadline, mirroring the teacher's router.ErrTimeout.
var ErrTimeout = errors.New("broker: receive timed out")

// Transport is the wire-level collaborator a Session drives. Its concrete
// implementation (length-prefixed framing over a net.Conn, or an in-memory
// pipe in tests) is out of scope here; Session only needs to send and
// receive decoded payload values.
type Transport interface {
	Send(payload interface{}) error
	Receive(timeout time.Duration) (interface{}, error)
	Close() error
}
