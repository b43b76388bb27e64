package geo

import (
	"errors"
	"math"
	"time"
)

// Sample is one timestamped position reading as reported by a vehicle unit.
// A Sample is immutable once constructed.
type Sample struct {
	Lat              float64
	Lng              float64
	SpeedMps         *float64 // optional, meters per second
	CapturedAtMillis int64
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	ErrNegativeSpeed    = errors.New("speed_mps cannot be negative")
	ErrZeroTimestamp    = errors.New("captured_at_millis must be a positive timestamp")
)

// NewSample constructs a validated Sample. Speed is optional.
func NewSample(lat, lng float64, speedMps *float64, capturedAtMillis int64) (Sample, error) {
	sample := Sample{
		Lat:              lat,
		Lng:              lng,
		SpeedMps:         speedMps,
		CapturedAtMillis: capturedAtMillis,
	}
	if err := sample.Validate(); err != nil {
		return Sample{}, err
	}
	return sample, nil
}

// Validate checks invariants of the Sample.
func (sample Sample) Validate() error {
	if sample.Lat < -90 || sample.Lat > 90 || math.IsNaN(sample.Lat) {
		return ErrInvalidLatitude
	}
	if sample.Lng < -180 || sample.Lng > 180 || math.IsNaN(sample.Lng) {
		return ErrInvalidLongitude
	}
	if sample.SpeedMps != nil {
		if *sample.SpeedMps < 0 || math.IsNaN(*sample.SpeedMps) {
			return ErrNegativeSpeed
		}
	}
	if sample.CapturedAtMillis <= 0 {
		return ErrZeroTimestamp
	}
	return nil
}

// CapturedAt converts the millisecond timestamp to time.Time (UTC).
func (sample Sample) CapturedAt() time.Time {
	return time.UnixMilli(sample.CapturedAtMillis).UTC()
}
