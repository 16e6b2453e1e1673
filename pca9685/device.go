package pca9685

import (
	"fmt"
	"math"
	"time"

	"github.com/antongulenko/tankdrive/i2cbus"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Oscillator startup time after leaving SLEEP mode
const wakeupTime = 500 * time.Microsecond

// Device drives all 16 outputs of one PCA9685 chip. Output values are staged and written in one
// I2C transaction covering only the changed outputs.
type Device struct {
	Bus       i2cbus.Bus
	Addr      byte
	Frequency float64 // Hz, DEFAULT_FREQUENCY if zero

	values      [NUM_OUTPUTS]float64
	output      PwmOutput
	prescale    byte
	initialized bool
}

// Init configures the PWM frequency and switches all outputs off. Repeated calls have no effect.
func (d *Device) Init() error {
	if d.initialized {
		return nil
	}
	d.prescale = Prescaler(d.clampedFrequency())
	log.Printf("Initializing PWM driver at %#02x (prescale %#02x, %.2fHz)...", d.Addr, d.prescale, d.RealFrequency())

	// PRE_SCALE can only be written in SLEEP mode
	if err := d.Bus.I2cWrite(d.Addr, MODE1, MODE1_SLEEP|MODE1_ALLCALL); err != nil {
		return errors.Wrapf(err, "failed to put PWM driver %#02x to sleep", d.Addr)
	}
	if err := d.Bus.I2cWrite(d.Addr, PRE_SCALE, d.prescale); err != nil {
		return errors.Wrapf(err, "failed to set prescaler of PWM driver %#02x", d.Addr)
	}
	if err := d.Bus.I2cWrite(d.Addr, MODE1, MODE1_ALLCALL|MODE1_AI); err != nil {
		return errors.Wrapf(err, "failed to wake up PWM driver %#02x", d.Addr)
	}
	time.Sleep(wakeupTime)

	d.values = [NUM_OUTPUTS]float64{}
	d.output = PwmOutput{}
	if err := d.Flush(); err != nil {
		return err
	}
	d.initialized = true
	return nil
}

func (d *Device) Initialized() bool {
	return d.initialized
}

func (d *Device) clampedFrequency() float64 {
	f := d.Frequency
	if f == 0 {
		f = DEFAULT_FREQUENCY
	}
	return math.Max(FREQ_MIN, math.Min(FREQ_MAX, f))
}

// RealFrequency is the frequency resulting from the configured prescaler
func (d *Device) RealFrequency() float64 {
	prescale := d.prescale
	if !d.initialized && prescale == 0 {
		prescale = Prescaler(d.clampedFrequency())
	}
	return INTERNAL_OSCILLATOR / (float64(TIMER_RESOLUTION) * (float64(prescale) + 1))
}

func (d *Device) Period() time.Duration {
	return time.Duration(float64(time.Second) / d.RealFrequency())
}

// Stage sets the on-time (0..1) of one output without writing it to the device
func (d *Device) Stage(output int, onTime float64) error {
	if output < 0 || output >= NUM_OUTPUTS {
		return fmt.Errorf("Invalid PWM output %v (must be 0..%v)", output, NUM_OUTPUTS-1)
	}
	if onTime < 0 || onTime > 1 || math.IsNaN(onTime) {
		return fmt.Errorf("Invalid on-time %v for PWM output %v (must be 0..1)", onTime, output)
	}
	d.values[output] = onTime
	return nil
}

func (d *Device) StagePulse(output int, width time.Duration) error {
	return d.Stage(output, float64(width)/float64(d.Period()))
}

// Flush writes all staged values that differ from the device state
func (d *Device) Flush() error {
	pwmValues := d.output.Update(LED0, d.values[:])
	if pwmValues == nil {
		return nil
	}
	if err := d.Bus.I2cWrite(d.Addr, pwmValues...); err != nil {
		// Force a full update next time, the device state is unknown
		d.output.OptimizeUpdate = false
		return errors.Wrapf(err, "failed to update PWM driver %#02x", d.Addr)
	}
	return nil
}

func (d *Device) Set(output int, onTime float64) error {
	if err := d.Stage(output, onTime); err != nil {
		return err
	}
	return d.Flush()
}

func (d *Device) SetPulse(output int, width time.Duration) error {
	if err := d.StagePulse(output, width); err != nil {
		return err
	}
	return d.Flush()
}

func (d *Device) Value(output int) float64 {
	if output < 0 || output >= NUM_OUTPUTS {
		return 0
	}
	return d.values[output]
}

// Off switches all outputs off
func (d *Device) Off() error {
	d.values = [NUM_OUTPUTS]float64{}
	return d.Flush()
}
