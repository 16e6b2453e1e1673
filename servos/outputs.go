package servos

import (
	"fmt"
	"time"

	"github.com/antongulenko/tankdrive/pca9685"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const DefaultFrequency = 50 * physic.Hertz

// PwmChannel is one output of a PCA9685 running at servo frequency. Several channels can share a Device.
type PwmChannel struct {
	Device *pca9685.Device
	Output int
}

func (c *PwmChannel) Enable() error {
	return c.Device.Init()
}

func (c *PwmChannel) SetPulse(width time.Duration) error {
	return c.Device.SetPulse(c.Output, width)
}

func (c *PwmChannel) Disable() error {
	if !c.Device.Initialized() {
		return nil
	}
	return c.Device.Set(c.Output, 0)
}

func (c *PwmChannel) String() string {
	return fmt.Sprintf("PCA9685 %#02x output %v", c.Device.Addr, c.Output)
}

// GpioPin generates pulses with the hardware PWM of a host pin, e.g. GPIO12 on a Raspberry Pi.
type GpioPin struct {
	Name      string
	Frequency physic.Frequency // DefaultFrequency if zero

	// Resolved from Name by Enable, unless set
	Pin gpio.PinIO
}

func (p *GpioPin) Enable() error {
	if p.Pin != nil {
		return nil
	}
	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize periph.io host drivers")
	}
	pin := gpioreg.ByName(p.Name)
	if pin == nil {
		return fmt.Errorf("GPIO pin '%v' not found", p.Name)
	}
	log.Printf("Using GPIO pin %v for servo pulses", pin)
	p.Pin = pin
	return nil
}

func (p *GpioPin) frequency() physic.Frequency {
	if p.Frequency == 0 {
		return DefaultFrequency
	}
	return p.Frequency
}

func (p *GpioPin) SetPulse(width time.Duration) error {
	if p.Pin == nil {
		return fmt.Errorf("GPIO pin '%v' is not enabled", p.Name)
	}
	f := p.frequency()
	period := f.Period()
	if width < 0 || width > period {
		return fmt.Errorf("Pulse width %v does not fit into the PWM period %v", width, period)
	}
	duty := gpio.Duty(float64(gpio.DutyMax) * float64(width) / float64(period))
	return p.Pin.PWM(duty, f)
}

func (p *GpioPin) Disable() error {
	if p.Pin == nil {
		return nil
	}
	return p.Pin.Out(gpio.Low)
}
