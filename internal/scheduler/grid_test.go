package scheduler

import "testing"

// Default geometry: 07:00-18:00 day, 30-minute slots, 48px per slot.
var testGeometry = GridGeometry{DayStart: 420, DayEnd: 1080, SlotMins: 30, SlotHeight: 48}

func TestLayout(t *testing.T) {
	cases := []struct {
		name   string
		window Window
		want   Span
		ok     bool
	}{
		{"first slot", Window{420, 450}, Span{Top: 0, Height: 48}, true},
		{"one hour mid-day", Window{540, 600}, Span{Top: 192, Height: 96}, true},
		{"ninety minutes", Window{570, 660}, Span{Top: 240, Height: 144}, true},
		{"ends at day end renders fully", Window{1050, 1080}, Span{Top: 1008, Height: 48}, true},
		{"clamped to day start", Window{390, 480}, Span{Top: 0, Height: 96}, true},
		{"clamped to day end", Window{1050, 1140}, Span{Top: 1008, Height: 48}, true},
		{"entirely before the day", Window{60, 120}, Span{}, false},
		{"entirely after the day", Window{1140, 1200}, Span{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := testGeometry.Layout(tc.window)
			if ok != tc.ok {
				t.Fatalf("Layout(%+v) ok=%v, want %v", tc.window, ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("Layout(%+v)=%+v, want %+v", tc.window, got, tc.want)
			}
		})
	}
}

func TestLayoutIsDeterministic(t *testing.T) {
	w := Window{555, 615}
	first, ok := testGeometry.Layout(w)
	if !ok {
		t.Fatal("expected layout to succeed")
	}
	for i := 0; i < 10; i++ {
		again, _ := testGeometry.Layout(w)
		if again != first {
			t.Fatalf("layout changed between calls: %+v vs %+v", first, again)
		}
	}
}

func TestLayoutMinimumHeight(t *testing.T) {
	// A sliver shorter than one pixel worth of minutes still renders.
	tiny := GridGeometry{DayStart: 0, DayEnd: 1440, SlotMins: 1440, SlotHeight: 10}
	span, ok := tiny.Layout(Window{100, 101})
	if !ok {
		t.Fatal("expected layout to succeed")
	}
	if span.Height < 1 {
		t.Fatalf("height %d, want at least 1", span.Height)
	}
}

func TestSlots(t *testing.T) {
	if got := testGeometry.Slots(); got != 22 {
		t.Fatalf("Slots()=%d, want 22", got)
	}
	uneven := GridGeometry{DayStart: 0, DayEnd: 100, SlotMins: 30, SlotHeight: 48}
	if got := uneven.Slots(); got != 4 {
		t.Fatalf("Slots()=%d, want 4", got)
	}
}
