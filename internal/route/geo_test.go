package route

import (
	"math"
	"testing"
)

func TestDistanceSymmetryAndZero(t *testing.T) {
	pts := [][2]float64{
		{33.4484, -112.0740}, // Phoenix
		{33.5722, -112.0880}, // north Phoenix
		{33.3062, -111.8413}, // Chandler
	}
	for i := range pts {
		for k := range pts {
			ab := Distance(pts[i][0], pts[i][1], pts[k][0], pts[k][1])
			ba := Distance(pts[k][0], pts[k][1], pts[i][0], pts[i][1])
			if ab != ba {
				t.Fatalf("distance not symmetric: %v vs %v", ab, ba)
			}
			if i == k && ab != 0 {
				t.Fatalf("self distance should be 0, got %v", ab)
			}
		}
	}
}

func TestDistanceTriangleInequality(t *testing.T) {
	a := [2]float64{33.4484, -112.0740}
	b := [2]float64{33.5722, -112.0880}
	c := [2]float64{33.3062, -111.8413}
	ac := Distance(a[0], a[1], c[0], c[1])
	ab := Distance(a[0], a[1], b[0], b[1])
	bc := Distance(b[0], b[1], c[0], c[1])
	if ac > ab+bc+1e-9 {
		t.Fatalf("triangle inequality violated: %v > %v + %v", ac, ab, bc)
	}
}

func TestDistanceKnownValue(t *testing.T) {
	// One degree of latitude is about 69.1 miles on a 3959-mile sphere.
	d := Distance(33.0, -112.0, 34.0, -112.0)
	if math.Abs(d-69.1) > 0.2 {
		t.Fatalf("expected ~69.1 miles per degree latitude, got %v", d)
	}
}

func TestTravelTime(t *testing.T) {
	cases := []struct {
		miles float64
		want  int
	}{
		{0, 0},
		{30, 60},  // 30 miles at 30 mph is an hour
		{15, 30},
		{1, 2},    // round(1/30*60) = 2
		{7.4, 15}, // round(14.8) = 15
	}
	for _, c := range cases {
		if got := TravelTime(c.miles); got != c.want {
			t.Errorf("TravelTime(%v) = %d, want %d", c.miles, got, c.want)
		}
	}
}

func TestClockRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "08:00", "14:30", "23:59"} {
		m, err := ParseClock(s)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", s, err)
		}
		if got := FormatClock(m); got != s {
			t.Errorf("round trip %q -> %d -> %q", s, m, got)
		}
	}
}

func TestClockWraps(t *testing.T) {
	if got := FormatClock(25 * 60); got != "01:00" {
		t.Fatalf("expected wrap to 01:00, got %q", got)
	}
	if got := FormatClock(-30); got != "23:30" {
		t.Fatalf("expected wrap to 23:30, got %q", got)
	}
}

func TestParseClockRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "abc", "25:00", "12:75"} {
		if _, err := ParseClock(s); err == nil {
			t.Errorf("ParseClock(%q): expected error", s)
		}
	}
}
