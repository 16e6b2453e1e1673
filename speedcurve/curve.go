// Package speedcurve maps signed speed percentages (-100..100) to physical actuator commands:
// servo pulse widths and DC motor PWM duty cycles.
package speedcurve

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	MaxPercent = 100
	MinPercent = -MaxPercent

	// Pulse range of typical continuous rotation servos, in microseconds
	DefaultPulseMin = 1300
	DefaultPulseMax = 1700
)

// Curve selects the response curve used for servo pulse widths.
type Curve int

const (
	// Tangent flattens the response near zero, so small deflections do not make the servos crawl.
	Tangent Curve = iota
	Linear
)

var curveNames = map[Curve]string{
	Tangent: "tangent",
	Linear:  "linear",
}

// Each curve maps a percentage in -1..1 to a factor in -1..1 of the half pulse range
var curveFuncs = map[Curve]func(float64) float64{
	Tangent: func(x float64) float64 { return math.Tan(x) / math.Tan(1) },
	Linear:  func(x float64) float64 { return x },
}

func ParseCurve(name string) (Curve, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for curve, curveName := range curveNames {
		if curveName == name {
			return curve, nil
		}
	}
	return Tangent, fmt.Errorf("Unknown speed curve '%v' (expected tangent or linear)", name)
}

func (c Curve) String() string {
	if name, ok := curveNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Curve(%d)", int(c))
}

// Set implements flag.Value
func (c *Curve) Set(name string) error {
	curve, err := ParseCurve(name)
	if err == nil {
		*c = curve
	}
	return err
}

// UnmarshalYAML allows curves to be written by name in yaml.v2 documents.
func (c *Curve) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	return c.Set(name)
}

func (c Curve) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// PulseRange is the servo pulse width range in microseconds. Center of the range means standstill.
type PulseRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

var DefaultPulseRange = PulseRange{
	Min: DefaultPulseMin,
	Max: DefaultPulseMax,
}

func (r PulseRange) Center() float64 {
	return float64(r.Min+r.Max) / 2
}

func (r PulseRange) HalfRange() float64 {
	return float64(r.Max-r.Min) / 2
}

func (r PulseRange) Validate() error {
	if r.Min <= 0 || r.Max <= r.Min {
		return fmt.Errorf("Invalid servo pulse range %vus..%vus", r.Min, r.Max)
	}
	return nil
}

// Pulse returns the pulse width for the given speed. The result is always within the range,
// regardless of the input value and curve.
func (r PulseRange) Pulse(curve Curve, speedPercent int) time.Duration {
	f, ok := curveFuncs[curve]
	if !ok {
		f = curveFuncs[Tangent]
	}
	x := float64(Clamp(speedPercent)) / MaxPercent
	us := r.Center() + r.HalfRange()*f(x)
	us = math.Max(float64(r.Min), math.Min(float64(r.Max), us))
	return time.Duration(math.Round(us)) * time.Microsecond
}

// Clamp restricts a speed percentage to -100..100
func Clamp(speedPercent int) int {
	if speedPercent > MaxPercent {
		return MaxPercent
	}
	if speedPercent < MinPercent {
		return MinPercent
	}
	return speedPercent
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
