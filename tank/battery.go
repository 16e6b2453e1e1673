package tank

import (
	"time"

	"github.com/antongulenko/tankdrive/ads1115"
	"github.com/antongulenko/tankdrive/i2cbus"
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Measure diff AIN0 to AIN3 continuously in 0..6V, comparator disabled
const adcConfig = ads1115.CONFIG_MUX_03 | ads1115.CONFIG_DR_32 | ads1115.CONFIG_PGA_6V | ads1115.CONFIG_COMP_QUE_OFF

// One period at 32 samples per second, plus the 10% oscillator tolerance
const adcConversionDelay = time.Second / 32 * 11 / 10

type BatteryConfig struct {
	Addr uint    `yaml:"addr"`
	Min  float64 `yaml:"min"` // Volt, empty battery
	Max  float64 `yaml:"max"` // Volt, fully charged
}

// Battery reads the battery voltage through an ADS1115, behind a voltage divider if necessary.
type Battery struct {
	BatteryConfig
	Bus   i2cbus.Bus
	Clock clock.Clock // System clock if nil

	// The conversion register holds no valid value before the first conversion is done
	firstConversion time.Time
}

func (b *Battery) Init() error {
	addr := byte(b.Addr)
	log.Printf("Initializing ADC device at %#02x...", addr)
	if b.Clock == nil {
		b.Clock = clock.New()
	}
	if err := ads1115.WriteRegister(b.Bus, addr, ads1115.REG_CONFIG, adcConfig); err != nil {
		return err
	}
	b.firstConversion = b.Clock.Now().Add(adcConversionDelay)
	// Configure the address of the register to be read by future reads
	return b.Bus.I2cWrite(addr, ads1115.REG_CONVERSION)
}

// Voltage blocks until the first conversion after Init is available
func (b *Battery) Voltage() (float64, error) {
	if b.Clock != nil {
		if wait := b.firstConversion.Sub(b.Clock.Now()); wait > 0 {
			b.Clock.Sleep(wait)
		}
	}
	val, err := ads1115.ReadRegisterDirectly(b.Bus, byte(b.Addr))
	if err != nil {
		return 0, err
	}
	return float64(val) * ads1115.CONVERT_6V, nil
}

// Percentage maps a voltage to the charge level 0..1
func (b *Battery) Percentage(voltage float64) float64 {
	if voltage <= b.Min {
		return 0
	}
	if voltage >= b.Max {
		return 1
	}
	return (voltage - b.Min) / (b.Max - b.Min)
}

// BatteryMonitor returns an initialized battery monitor on the bus of the tank
func (t *Tank) BatteryMonitor() (*Battery, error) {
	if t.Bus == nil {
		return nil, errors.New("The battery monitor needs the I2C bus, which is not used by the " + t.Config.Backend + " backend")
	}
	battery := &Battery{
		BatteryConfig: t.Config.Battery,
		Bus:           t.Bus,
		Clock:         t.Clock,
	}
	return battery, battery.Init()
}
