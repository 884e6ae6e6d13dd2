package model

import (
	"encoding/json"
	"math"
	"time"
)

// Duration is a time.Duration that serializes as seconds with millisecond
// precision, matching what API consumers expect for processing times.
type Duration time.Duration

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Seconds returns the duration in seconds rounded to milliseconds.
func (d Duration) Seconds() float64 {
	return math.Round(time.Duration(d).Seconds()*1000) / 1000
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).Round(time.Millisecond).String()
}

// MarshalJSON encodes the duration as fractional seconds.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Seconds())
}

// UnmarshalJSON decodes fractional seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return err
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}
