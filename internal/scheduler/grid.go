package scheduler

// GridGeometry fixes the daily presentation window and the size of one
// time slot. Layout is a pure function of the geometry and the booking
// window, so identical inputs always produce identical spans.
type GridGeometry struct {
	DayStart   int // minutes since midnight at the top of the grid
	DayEnd     int // minutes since midnight at the bottom of the grid
	SlotMins   int // minutes represented by one slot
	SlotHeight int // rendered height of one slot
}

// Span is the rendered vertical extent of one booking on the grid.
type Span struct {
	Top    int
	Height int
}

// Layout maps a booking window onto the grid. Windows are clamped to the
// visible day; a window ending exactly at DayEnd renders at full height
// rather than clipping to zero. Returns ok=false when the window lies
// entirely outside the grid.
func (g GridGeometry) Layout(w Window) (Span, bool) {
	if g.SlotMins <= 0 || g.SlotHeight <= 0 || g.DayEnd <= g.DayStart {
		return Span{}, false
	}
	start := w.Start
	end := w.End
	if start < g.DayStart {
		start = g.DayStart
	}
	if end > g.DayEnd {
		end = g.DayEnd
	}
	if end <= start {
		return Span{}, false
	}
	top := (start - g.DayStart) * g.SlotHeight / g.SlotMins
	height := (end - start) * g.SlotHeight / g.SlotMins
	if height == 0 {
		height = 1
	}
	return Span{Top: top, Height: height}, true
}

// Slots returns how many slots the grid spans vertically.
func (g GridGeometry) Slots() int {
	if g.SlotMins <= 0 {
		return 0
	}
	return (g.DayEnd - g.DayStart + g.SlotMins - 1) / g.SlotMins
}
