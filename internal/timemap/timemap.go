// Package timemap converts between vertical pixel offsets on the hour grid
// and times of day.
//
// All pointer-derived times pass through PixelToTime, so every previewed or
// committed time is a quarter-hour.
package timemap

import (
	"errors"
	"math"

	"timegrid/internal/model"
)

const (
	// SnapMinutes is the quantum every pointer-derived time snaps to.
	SnapMinutes = 15

	// LatestStart is the last start time the grid accepts (23:45).
	LatestStart = model.MinutesPerDay - SnapMinutes
)

var ErrHourHeight = errors.New("timemap: hour height must be positive")

// Mapper maps pixel offsets measured from the top of the grid (00:00) to
// times of day.
type Mapper struct {
	hourHeight float64
}

// New returns a Mapper for a grid drawn hourHeightPx pixels per hour.
func New(hourHeightPx float64) (Mapper, error) {
	if hourHeightPx <= 0 || math.IsNaN(hourHeightPx) || math.IsInf(hourHeightPx, 0) {
		return Mapper{}, ErrHourHeight
	}
	return Mapper{hourHeight: hourHeightPx}, nil
}

// HourHeight returns the pixel height of one hour.
func (m Mapper) HourHeight() float64 {
	return m.hourHeight
}

// PixelToTime snaps y to the nearest quarter-hour and clamps it to
// [00:00, 23:45]. Offsets above or below the grid clamp, never fail.
func (m Mapper) PixelToTime(y float64) model.TimeOfDay {
	return model.TimeOfDay(Clamp(Snap(m.PixelsToMinutes(y)), 0, LatestStart))
}

// TimeToPixel is the exact inverse of PixelToTime, without snapping.
func (m Mapper) TimeToPixel(t model.TimeOfDay) float64 {
	return m.MinutesToPixels(float64(t))
}

// PixelsToMinutes converts a pixel distance to a (fractional) minute count.
func (m Mapper) PixelsToMinutes(dy float64) float64 {
	return dy / m.hourHeight * 60
}

// MinutesToPixels converts a minute count to a pixel distance.
func (m Mapper) MinutesToPixels(minutes float64) float64 {
	return minutes / 60 * m.hourHeight
}

// Snap rounds minutes to the nearest multiple of SnapMinutes. Halves round
// up, matching the rounding pointer math has always used on the grid.
func Snap(minutes float64) int {
	return int(math.Floor(minutes/SnapMinutes+0.5)) * SnapMinutes
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
