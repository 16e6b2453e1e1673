package main

import (
	"context"
	"testing"
	"time"

	"github.com/antongulenko/tankdrive/tank"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithMockClock(a *assert.Assertions, mock *clock.Mock, run func() error) {
	done := make(chan error)
	go func() {
		done <- run()
	}()
	for {
		select {
		case err := <-done:
			a.NoError(err)
			return
		default:
			mock.Add(pollInterval)
		}
	}
}

func TestPatrol(t *testing.T) {
	a := assert.New(t)
	mock := clock.NewMock()
	backend := new(tank.DummyBackend)
	c := tank.NewController(backend, mock)
	require.NoError(t, c.Attach())
	backend.Moves = nil

	speed, duration, angle, rounds = 50, 100*time.Millisecond, 90, 2
	runWithMockClock(a, mock, func() error {
		return patrol(context.Background(), c)
	})

	round := []tank.Move{
		{Left: 50, Right: 50}, {Left: 0, Right: 0}, // forward until expired
		{Left: 0, Right: 0}, {Left: 100, Right: -100}, {Left: 0, Right: 0}, // turn
	}
	a.Equal(append(round, round...), backend.Moves)
	a.False(c.IsManeuvering())
}

func TestTimedCommands(t *testing.T) {
	a := assert.New(t)
	mock := clock.NewMock()
	backend := new(tank.DummyBackend)
	c := tank.NewController(backend, mock)
	require.NoError(t, c.Attach())

	speed, duration, angle = 30, 50*time.Millisecond, -90
	for _, cmd := range []commandFunc{forward, backward, turn} {
		backend.Moves = nil
		runWithMockClock(a, mock, func() error {
			return cmd(context.Background(), c)
		})
		last, _ := backend.Last()
		a.Equal(tank.Move{}, last, "stopped after the maneuver")
		a.False(c.IsMoving())
	}
	a.Equal([]tank.Move{{Left: 0, Right: 0}, {Left: -100, Right: 100}, {Left: 0, Right: 0}}, backend.Moves)

	a.NoError(stop(context.Background(), c))
	a.Equal(tank.Move{}, backend.Moves[len(backend.Moves)-1])
}

func TestCommandNames(t *testing.T) {
	a := assert.New(t)
	names := commandNames()
	a.Contains(names, "scan")
	a.Contains(names, "patrol")
	a.Len(names, len(commands)+1)
}
