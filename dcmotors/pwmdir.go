package dcmotors

import (
	"fmt"

	"github.com/antongulenko/tankdrive/i2cbus"
	"github.com/antongulenko/tankdrive/pca9685"
	"github.com/antongulenko/tankdrive/speedcurve"
)

// PwmDir drives motor controllers with one PWM input for the speed and one logic input for the
// direction per motor, all connected to one PCA9685. Starting from the First output, the order of
// outputs is: all speed inputs, then all direction inputs. For two motors: left speed, right speed,
// left direction, right direction.
// The controllers cannot brake, Brake and Release both cut the speed to zero.
type PwmDir struct {
	Device *pca9685.Device
	First  int
	Motors int
}

func NewPwmDir(bus i2cbus.Bus, addr byte, motors int) *PwmDir {
	return &PwmDir{
		Device: &pca9685.Device{Bus: bus, Addr: addr},
		Motors: motors,
	}
}

func (p *PwmDir) Init() error {
	if p.Motors < 1 || p.First < 0 || p.First+2*p.Motors > pca9685.NUM_OUTPUTS {
		return fmt.Errorf("Cannot fit %v motors into PWM outputs starting at %v", p.Motors, p.First)
	}
	return p.Device.Init()
}

func (p *PwmDir) Motor(number int) (Channel, error) {
	if number < 1 || number > p.Motors {
		return nil, fmt.Errorf("Invalid motor %v (must be 1..%v)", number, p.Motors)
	}
	return &pwmDirMotor{
		device:    p.Device,
		speed:     p.First + number - 1,
		direction: p.First + p.Motors + number - 1,
	}, nil
}

// The speed is staged and written together with the direction by the next Run.
type pwmDirMotor struct {
	device           *pca9685.Device
	speed, direction int
	duty             uint8
}

func (m *pwmDirMotor) SetSpeed(duty uint8) error {
	m.duty = duty
	return nil
}

func (m *pwmDirMotor) Run(cmd Command) error {
	speed := float64(m.duty) / speedcurve.MaxDuty
	dir := m.device.Value(m.direction)
	switch cmd {
	case Forward:
		dir = 1
	case Backward:
		dir = 0
	case Brake, Release:
		speed = 0
	default:
		return fmt.Errorf("Invalid motor command %v", cmd)
	}
	if err := m.device.Stage(m.speed, speed); err != nil {
		return err
	}
	if err := m.device.Stage(m.direction, dir); err != nil {
		return err
	}
	return m.device.Flush()
}
