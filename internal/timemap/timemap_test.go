package timemap

import (
	"errors"
	"testing"

	"timegrid/internal/model"
)

func TestNewRejectsBadHourHeight(t *testing.T) {
	for _, h := range []float64{0, -48} {
		if _, err := New(h); !errors.Is(err, ErrHourHeight) {
			t.Errorf("New(%v) err = %v, want ErrHourHeight", h, err)
		}
	}
}

func TestPixelToTime(t *testing.T) {
	m, err := New(48)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		y    float64
		want model.TimeOfDay
	}{
		{"top", 0, 0},
		{"exact hour", 48 * 9, model.At(9, 0)},
		{"rounds down", 48*9 + 5, model.At(9, 0)},
		{"half step rounds up", 48*9 + 6, model.At(9, 15)},
		{"above grid", -200, 0},
		{"past 23:45", 48 * 24, model.At(23, 45)},
		{"far below grid", 48 * 100, model.At(23, 45)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.PixelToTime(tt.y); got != tt.want {
				t.Errorf("PixelToTime(%v) = %v, want %v", tt.y, got, tt.want)
			}
		})
	}
}

func TestPixelToTimeIsQuarterAligned(t *testing.T) {
	m, _ := New(37.5)
	for y := -100.0; y < 37.5*25; y += 0.7 {
		got := m.PixelToTime(y)
		if int(got)%SnapMinutes != 0 {
			t.Fatalf("PixelToTime(%v) = %v, not quarter aligned", y, got)
		}
		if got < 0 || got > LatestStart {
			t.Fatalf("PixelToTime(%v) = %v, out of range", y, got)
		}
	}
}

func TestSnapRoundTrip(t *testing.T) {
	for _, h := range []float64{48, 60, 37.5, 100} {
		m, _ := New(h)
		for minutes := 0; minutes <= LatestStart; minutes += SnapMinutes {
			tod := model.TimeOfDay(minutes)
			if got := m.PixelToTime(m.TimeToPixel(tod)); got != tod {
				t.Fatalf("hour height %v: round trip of %v = %v", h, tod, got)
			}
		}
	}
}

func TestTimeToPixelDoesNotSnap(t *testing.T) {
	m, _ := New(60)
	if got := m.TimeToPixel(model.At(10, 7)); got != 607 {
		t.Errorf("TimeToPixel(10:07) = %v, want 607", got)
	}
}

func TestSnap(t *testing.T) {
	tests := map[float64]int{
		0: 0, 7.4: 0, 7.5: 15, 22.4: 15, 22.5: 30, -7.4: 0, -8: -15, 1439: 1440,
	}
	for in, want := range tests {
		if got := Snap(in); got != want {
			t.Errorf("Snap(%v) = %d, want %d", in, got, want)
		}
	}
}
