package emission

// measureValue is the brightness of a measurement marker.
const measureValue = 0.5

// Markers lights every nth LED of a strip of count LEDs for measuring the
// track by photograph. Markers share a hue within each run of ten so the
// decade of an LED can be read off a picture; each tenth marker is drawn
// at full brightness. n below 1 is treated as 1.
func Markers(sink Sink, count, n int) {
	if n < 1 {
		n = 1
	}
	for i := 0; i < count; i += n {
		marker := i / n
		hue := float64(marker/10%10) / 10
		value := measureValue
		if marker%10 == 0 {
			value = 1
		}
		sink.AddHSV(float64(i), hue, 1, value)
	}
}
