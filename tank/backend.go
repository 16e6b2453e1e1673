package tank

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Backend converts left/right speed percentages (-100..100) into actuator commands.
// servos.TwoServo and dcmotors.Array are the hardware implementations.
type Backend interface {
	Attach() error
	Detach() error
	Move(left, right int) error
}

type Move struct {
	Left, Right int
}

// DummyBackend only logs and records commands
type DummyBackend struct {
	Attached bool
	Moves    []Move

	// Returned from every call, if set
	Err error
}

func (d *DummyBackend) Attach() error {
	log.Println("Dummy backend: attach")
	if d.Err != nil {
		return d.Err
	}
	d.Attached = true
	return nil
}

func (d *DummyBackend) Detach() error {
	log.Println("Dummy backend: detach")
	d.Attached = false
	return d.Err
}

func (d *DummyBackend) Move(left, right int) error {
	log.Printf("Dummy backend: left %v%%, right %v%%", left, right)
	if !d.Attached {
		return errors.New("Dummy backend is not attached")
	}
	if d.Err != nil {
		return d.Err
	}
	d.Moves = append(d.Moves, Move{Left: left, Right: right})
	return nil
}

// Last returns the most recent successful command
func (d *DummyBackend) Last() (Move, bool) {
	if len(d.Moves) == 0 {
		return Move{}, false
	}
	return d.Moves[len(d.Moves)-1], true
}
