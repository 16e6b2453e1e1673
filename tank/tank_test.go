package tank

import (
	"testing"

	"github.com/antongulenko/tankdrive/dcmotors"
	"github.com/antongulenko/tankdrive/i2cbus"
	"github.com/antongulenko/tankdrive/pca9685"
	"github.com/antongulenko/tankdrive/servos"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDummyTank(backend string) *Tank {
	t := DefaultTank
	t.Dummy = true
	t.Clock = clock.NewMock()
	t.Config.Backend = backend
	return &t
}

func TestTankServoSetup(t *testing.T) {
	a := assert.New(t)
	tank := newDummyTank(BackendServo)
	tank.Motion.MovingSpeedPercent = 50
	require.NoError(t, tank.Setup())
	a.IsType(&servos.TwoServo{}, tank.Actuators)
	a.True(tank.Controller.Attached())
	a.Equal(50, tank.Controller.MovingSpeedPercent())

	bus := tank.Bus.(*i2cbus.Dummy)
	a.NotEmpty(bus.Writes)
	for _, write := range bus.Writes {
		a.Equal(pca9685.ADDRESS, write.Addr)
	}

	bus.Reset()
	tank.Controller.GoForward(100)
	a.Len(bus.Writes, 2, "one pulse update per servo")

	tank.Cleanup()
	a.False(tank.Controller.Attached())
	a.True(bus.Closed)
}

func TestTankMotorSetup(t *testing.T) {
	a := assert.New(t)
	test := func(backend string, addr byte) {
		tank := newDummyTank(backend)
		require.NoError(t, tank.Setup(), backend)
		a.IsType(&dcmotors.Array{}, tank.Actuators)
		bus := tank.Bus.(*i2cbus.Dummy)
		bus.Reset()
		tank.Controller.GoBackward(60)
		a.NotEmpty(bus.Writes, backend)
		for _, write := range bus.Writes {
			a.Equal(addr, write.Addr, backend)
		}
		tank.Cleanup()
	}
	test(BackendShield, dcmotors.ShieldAddress)
	test(BackendGrove, 0x0f)
	test(BackendPwmDir, pca9685.ADDRESS)
}

func TestTankDummySetup(t *testing.T) {
	a := assert.New(t)
	for _, backend := range []string{BackendDummy, BackendGpioServo} {
		tank := newDummyTank(backend)
		require.NoError(t, tank.Setup())
		a.Nil(tank.Bus)
		dummy, ok := tank.Actuators.(*DummyBackend)
		require.True(t, ok, backend)
		tank.Controller.Turn(90, nil)
		last, _ := dummy.Last()
		a.Equal(Move{100, -100}, last)
		tank.Cleanup()
		a.False(dummy.Attached)
	}
}

func TestTankInvalidConfig(t *testing.T) {
	tank := newDummyTank("unknown")
	assert.Error(t, tank.Setup())
	tank.Cleanup()

	tank = newDummyTank(BackendServo)
	tank.ConfigFile = "/nonexistent/chassis.yml"
	assert.Error(t, tank.Setup())
}
