package tank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/antongulenko/tankdrive/maneuver"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type controllerSuite struct {
	t *testing.T
	*require.Assertions

	clock   *clock.Mock
	backend *DummyBackend
	c       *Controller
	fired   []maneuver.Maneuver
}

func (s *controllerSuite) T() *testing.T {
	return s.t
}

func (s *controllerSuite) SetT(t *testing.T) {
	s.t = t
	s.Assertions = require.New(t)
}

func (s *controllerSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.backend = new(DummyBackend)
	s.c = NewController(s.backend, s.clock)
	s.fired = nil
	s.NoError(s.c.Attach())
	s.resetMoves()
}

func TestController(t *testing.T) {
	suite.Run(t, new(controllerSuite))
}

func (s *controllerSuite) record(m maneuver.Maneuver) {
	s.fired = append(s.fired, m)
}

func (s *controllerSuite) resetMoves() {
	s.backend.Moves = nil
}

func (s *controllerSuite) moves(m ...Move) {
	s.Equal(m, s.backend.Moves)
	s.resetMoves()
}

func (s *controllerSuite) advance(d time.Duration) {
	s.clock.Add(d)
}

func (s *controllerSuite) TestDefaults() {
	c := NewController(new(DummyBackend), nil)
	s.Equal(DefaultMotionState, c.State())
	s.Equal(100, c.MovingSpeedPercent())
	s.Equal(100, c.TurningSpeedPercent())
	s.Equal(7, c.TurningDelayCoefficient())
	s.False(c.IsMoving())
	s.False(c.IsManeuvering())
	s.False(c.Attached())
}

func (s *controllerSuite) TestAttachStops() {
	backend := new(DummyBackend)
	c := NewController(backend, s.clock)
	c.GoForward(50)
	s.Empty(backend.Moves, "no backend writes before attaching")
	s.Equal(50, c.Speed())

	s.NoError(c.Attach())
	s.True(backend.Attached)
	s.Equal([]Move{{0, 0}}, backend.Moves)
	s.Equal(0, c.Speed())

	c.GoForward(20)
	s.NoError(c.Detach())
	s.False(backend.Attached)
	s.Equal([]Move{{0, 0}, {20, 20}, {0, 0}}, backend.Moves)
	s.NoError(c.Detach(), "detaching twice does nothing")

	failing := &DummyBackend{Err: errors.New("no hardware")}
	c = NewController(failing, s.clock)
	s.Error(c.Attach())
	s.False(c.Attached())
}

func (s *controllerSuite) TestGoForwardBackward() {
	s.c.GoForward(50)
	s.moves(Move{50, 50})
	s.True(s.c.IsMoving())
	s.Equal(50, s.c.Speed())

	s.c.GoBackward(30)
	s.moves(Move{-30, -30})
	s.Equal(-30, s.c.Speed())
	s.True(s.c.IsMoving())

	s.c.GoBackward(0)
	s.moves(Move{0, 0})
	s.False(s.c.IsMoving())
}

func (s *controllerSuite) TestRedundantCommands() {
	s.c.GoForward(40)
	s.c.GoForward(40)
	s.c.GoForward(40)
	s.moves(Move{40, 40})

	s.c.GoBackward(40)
	s.c.GoBackward(40)
	s.moves(Move{-40, -40})

	// Clamped speeds are compared after clamping
	s.c.GoForward(100)
	s.c.GoForward(150)
	s.moves(Move{100, 100})

	// Stop always writes
	s.c.Stop()
	s.c.Stop()
	s.moves(Move{0, 0}, Move{0, 0})
}

func (s *controllerSuite) TestClamping() {
	test := func(forward bool, requested, expected int) {
		s.c.Stop()
		s.resetMoves()
		if forward {
			s.c.GoForward(requested)
		} else {
			s.c.GoBackward(requested)
		}
		s.Equal(expected, s.c.Speed(), "forward %v, requested %v", forward, requested)
	}
	test(true, 150, 100)
	test(true, -20, 0)
	test(false, 150, -100)
	test(false, -20, 0)
	test(true, 100, 100)
	test(false, 1, -1)
}

func (s *controllerSuite) TestMovingSpeedScaling() {
	s.c.SetMovingSpeedPercent(50)
	s.c.GoForward(100)
	s.moves(Move{50, 50})
	s.Equal(100, s.c.Speed(), "state keeps the requested speed")

	s.c.GoBackward(50)
	s.moves(Move{-25, -25})

	// Changing the scale does not affect the running command
	s.c.SetMovingSpeedPercent(100)
	s.Empty(s.backend.Moves)
}

func (s *controllerSuite) TestSetterValidation() {
	s.c.SetMovingSpeedPercent(101)
	s.c.SetMovingSpeedPercent(-1)
	s.Equal(100, s.c.MovingSpeedPercent())
	s.c.SetMovingSpeedPercent(0)
	s.Equal(0, s.c.MovingSpeedPercent())

	s.c.SetTurningSpeedPercent(200)
	s.c.SetTurningSpeedPercent(-5)
	s.Equal(100, s.c.TurningSpeedPercent())
	s.c.SetTurningSpeedPercent(30)
	s.Equal(30, s.c.TurningSpeedPercent())

	s.c.SetTurningDelayCoefficient(0)
	s.Equal(0, s.c.TurningDelayCoefficient())
	s.c.SetTurningDelayCoefficient(12)
	s.Equal(12, s.c.TurningDelayCoefficient())
	s.c.SetTurningDelayCoefficient(-7)
	s.Equal(12, s.c.TurningDelayCoefficient())
}

func (s *controllerSuite) TestNegativeDurations() {
	s.c.SetTurningDelayCoefficient(-7)
	s.c.Turn(90, s.record)
	m, _ := s.c.Maneuver()
	s.Equal(630*time.Millisecond, m.Duration, "negative coefficient ignored")
	s.advance(631 * time.Millisecond)
	s.False(s.c.IsManeuvering())
	s.Len(s.fired, 1)
	s.resetMoves()

	s.c.GoForwardFor(50, -10*time.Millisecond, s.record)
	s.moves(Move{50, 50})
	m, _ = s.c.Maneuver()
	s.Equal(time.Duration(0), m.Duration)
	s.advance(time.Millisecond)
	s.False(s.c.IsManeuvering())
	s.Len(s.fired, 2)
	s.Equal(0, s.c.Speed())
	s.moves(Move{0, 0})
}

func (s *controllerSuite) TestTurnScenario() {
	s.c.SetMovingSpeedPercent(50)
	s.c.SetTurningSpeedPercent(30)
	s.c.SetTurningDelayCoefficient(7)

	s.c.GoForward(100)
	s.moves(Move{50, 50})

	s.c.Turn(90, s.record)
	s.moves(Move{0, 0}, Move{30, -30})
	s.False(s.c.IsMoving(), "turning on the spot")
	m, ok := s.c.Maneuver()
	s.True(ok)
	s.Equal(maneuver.Maneuver{Kind: maneuver.Turn, Param: 90, Duration: 630 * time.Millisecond}, m)

	s.advance(630 * time.Millisecond)
	s.True(s.c.IsManeuvering(), "expiry is strictly after the duration")
	s.Empty(s.fired)

	s.advance(time.Millisecond)
	s.False(s.c.IsManeuvering())
	s.Equal([]maneuver.Maneuver{m}, s.fired)
	s.moves(Move{0, 0})

	s.False(s.c.IsManeuvering())
	s.Len(s.fired, 1, "fired exactly once")
	s.Empty(s.backend.Moves)
}

func (s *controllerSuite) TestTurnDirections() {
	s.c.SetTurningSpeedPercent(40)
	s.c.Turn(-45, nil)
	s.moves(Move{0, 0}, Move{-40, 40})
	m, _ := s.c.Maneuver()
	s.Equal(315*time.Millisecond, m.Duration)
	s.Equal(-45, m.Param)

	s.c.Turn(0, nil)
	s.moves(Move{0, 0}, Move{40, -40})
	m, ok := s.c.Maneuver()
	s.True(ok)
	s.Equal(time.Duration(0), m.Duration)

	// Zero duration expires at the next millisecond
	s.True(s.c.IsManeuvering())
	s.advance(time.Millisecond)
	s.False(s.c.IsManeuvering())
}

func (s *controllerSuite) TestTimedStraightMove() {
	s.c.GoForwardFor(60, time.Second, s.record)
	s.moves(Move{60, 60})
	s.True(s.c.IsManeuvering())
	s.True(s.c.IsMoving())

	s.advance(500 * time.Millisecond)
	s.False(s.c.Poll())
	s.True(s.c.IsMoving())

	s.advance(501 * time.Millisecond)
	s.True(s.c.Poll())
	s.False(s.c.IsMoving())
	s.moves(Move{0, 0})
	s.Equal([]maneuver.Maneuver{{Kind: maneuver.Forward, Param: 60, Duration: time.Second}}, s.fired)

	s.c.GoBackwardFor(150, 200*time.Millisecond, s.record)
	s.moves(Move{-100, -100})
	m, _ := s.c.Maneuver()
	s.Equal(maneuver.Maneuver{Kind: maneuver.Backward, Param: 150, Duration: 200 * time.Millisecond}, m)
}

func (s *controllerSuite) TestStopSuppressesCompletion() {
	s.c.GoForwardFor(50, 100*time.Millisecond, s.record)
	s.c.Stop()
	s.False(s.c.IsManeuvering())
	s.advance(time.Second)
	s.False(s.c.IsManeuvering())
	s.Empty(s.fired)

	// Turn stops a running maneuver, too
	s.c.GoForwardFor(50, 100*time.Millisecond, s.record)
	s.c.Turn(10, nil)
	s.advance(time.Second)
	s.False(s.c.IsManeuvering())
	s.Empty(s.fired)
}

func (s *controllerSuite) TestRearmReplaces() {
	var first, second []maneuver.Maneuver
	s.c.GoForwardFor(50, 100*time.Millisecond, func(m maneuver.Maneuver) { first = append(first, m) })
	s.advance(50 * time.Millisecond)
	s.c.GoBackwardFor(50, 100*time.Millisecond, func(m maneuver.Maneuver) { second = append(second, m) })

	s.advance(60 * time.Millisecond)
	s.True(s.c.IsManeuvering(), "the deadline is measured from the second arm")
	s.advance(50 * time.Millisecond)
	s.False(s.c.IsManeuvering())
	s.Empty(first)
	s.Len(second, 1)
	s.Equal(maneuver.Backward, second[0].Kind)
}

func (s *controllerSuite) TestCompletionChains() {
	rounds := 0
	var next maneuver.Completion
	next = func(m maneuver.Maneuver) {
		s.False(s.c.IsMoving(), "stopped before the completion runs")
		rounds++
		if rounds < 3 {
			s.c.Turn(90, next)
		}
	}
	s.c.GoForwardFor(100, 100*time.Millisecond, next)
	for i := 0; i < 10 && s.c.IsManeuvering(); i++ {
		s.advance(time.Second)
	}
	s.Equal(3, rounds)
	s.False(s.c.IsManeuvering())
	s.moves(
		Move{100, 100}, Move{0, 0}, // forward, then expiry
		Move{0, 0}, Move{100, -100}, Move{0, 0}, // first turn
		Move{0, 0}, Move{100, -100}, Move{0, 0}) // second turn
}

func (s *controllerSuite) TestCompletionWithoutCallback() {
	s.c.GoForwardFor(50, 10*time.Millisecond, nil)
	s.advance(11 * time.Millisecond)
	s.True(s.c.Poll())
	s.False(s.c.IsMoving())
	s.False(s.c.IsManeuvering())
}

func (s *controllerSuite) TestBackendErrorsKeepState() {
	s.backend.Err = errors.New("bus error")
	s.c.GoForward(70)
	s.Equal(70, s.c.Speed())
	s.Empty(s.backend.Moves)

	// The same speed is not retried
	s.backend.Err = nil
	s.c.GoForward(70)
	s.Empty(s.backend.Moves)
	s.c.GoForward(71)
	s.moves(Move{71, 71})
}

func (s *controllerSuite) TestDetachedCommands() {
	s.NoError(s.c.Detach())
	s.resetMoves()
	s.c.GoForwardFor(30, 100*time.Millisecond, s.record)
	s.True(s.c.IsMoving())
	s.Empty(s.backend.Moves)
	s.advance(time.Second)
	s.False(s.c.IsManeuvering())
	s.Len(s.fired, 1, "maneuvers expire while detached")
}

func (s *controllerSuite) TestWait() {
	s.c.GoForwardFor(50, 100*time.Millisecond, s.record)
	done := make(chan error)
	go func() {
		done <- s.c.Wait(context.Background(), 10*time.Millisecond)
	}()
	for {
		select {
		case err := <-done:
			s.NoError(err)
			s.Len(s.fired, 1)
			s.False(s.c.IsMoving())
			return
		default:
			s.clock.Add(10 * time.Millisecond)
		}
	}
}

func (s *controllerSuite) TestWaitCancelled() {
	s.c.GoForwardFor(50, time.Hour, s.record)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Equal(context.Canceled, s.c.Wait(ctx, time.Millisecond))
	s.False(s.c.IsMoving())
	s.False(s.c.IsManeuvering())
	s.Empty(s.fired)

	s.NoError(s.c.Wait(ctx, time.Millisecond), "nothing to wait for")
}

func (s *controllerSuite) TestWraparound() {
	// Move the uptime close to the end of the uint32 millisecond range
	s.advance(time.Duration(1<<32-50) * time.Millisecond)
	s.c.GoForwardFor(50, 100*time.Millisecond, s.record)
	s.advance(60 * time.Millisecond)
	s.True(s.c.IsManeuvering())
	s.advance(41 * time.Millisecond)
	s.False(s.c.IsManeuvering())
	s.Len(s.fired, 1)
}
