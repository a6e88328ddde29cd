// Package units converts marble speeds and strip distances for display.
package units

import "strings"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
	// LEDPS reports speed in LED positions per second.
	LEDPS = "ledps"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH, LEDPS}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed in m/s to targetUnits. LED units use
// ledsPerMeter; unknown units return m/s.
func ConvertSpeed(speedMPS float64, targetUnits string, ledsPerMeter float64) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	case LEDPS:
		return speedMPS * ledsPerMeter
	default:
		return speedMPS
	}
}

// LEDsToMeters converts a distance along the strip to metres.
func LEDsToMeters(leds, ledsPerMeter float64) float64 {
	if ledsPerMeter <= 0 {
		return 0
	}
	return leds / ledsPerMeter
}

// MetersToLEDs converts metres to a distance along the strip.
func MetersToLEDs(meters, ledsPerMeter float64) float64 {
	return meters * ledsPerMeter
}
