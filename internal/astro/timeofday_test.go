package astro

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"dawn", Dawn, false},
		{"Morning", Morning, false},
		{"day", Morning, false},
		{" afternoon ", Afternoon, false},
		{"dusk", Evening, false},
		{"NIGHT", Night, false},
		{"brunch", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimeOfDay_Cycle(t *testing.T) {
	tod := Dawn
	for i := 0; i < len(TimesOfDay()); i++ {
		tod = tod.Next()
	}
	if tod != Dawn {
		t.Errorf("Next x5 = %q, want dawn", tod)
	}
	if Dawn.Prev() != Night {
		t.Errorf("Dawn.Prev() = %q, want night", Dawn.Prev())
	}
}

func TestDeriveTimeOfDay(t *testing.T) {
	const sunrise, sunset = 6 * 60, 18 * 60

	tests := []struct {
		now  float64
		want TimeOfDay
	}{
		{0, Night},
		{4*60 + 59, Night},
		{5 * 60, Dawn},
		{6*60 + 59, Dawn},
		{7 * 60, Morning},
		{11*60 + 59, Morning},
		{12 * 60, Afternoon},
		{16*60 + 59, Afternoon},
		{17 * 60, Evening},
		{18*60 + 59, Evening},
		{19 * 60, Night},
		{23*60 + 59, Night},
	}

	for _, tt := range tests {
		got := DeriveTimeOfDay(tt.now, sunrise, sunset)
		if got != tt.want {
			t.Errorf("DeriveTimeOfDay(%v) = %q, want %q", tt.now, got, tt.want)
		}
	}
}

func TestClockTimeOfDay(t *testing.T) {
	want := map[int]TimeOfDay{
		0: Night, 4: Night, 5: Dawn, 7: Dawn, 8: Morning, 11: Morning,
		12: Afternoon, 16: Afternoon, 17: Evening, 19: Evening, 20: Night, 23: Night,
	}
	for hour, tod := range want {
		if got := ClockTimeOfDay(hour); got != tod {
			t.Errorf("ClockTimeOfDay(%d) = %q, want %q", hour, got, tod)
		}
	}
}

func TestStarsVisible(t *testing.T) {
	for _, tod := range TimesOfDay() {
		want := tod == Night || tod == Dawn
		if got := tod.StarsVisible(); got != want {
			t.Errorf("%s.StarsVisible() = %v, want %v", tod, got, want)
		}
	}
}

func TestMinutesSinceMidnight(t *testing.T) {
	ts := time.Date(2025, 3, 1, 13, 45, 30, 0, time.UTC)
	if got := MinutesSinceMidnight(ts); got != 13*60+45.5 {
		t.Errorf("MinutesSinceMidnight = %v, want %v", got, 13*60+45.5)
	}
}
