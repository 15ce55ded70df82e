package schedule

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Geometry maps pixels to slot rows. The host UI reports pointer coordinates
// relative to the grid's top-left corner; all quantization happens here so
// gestures are always whole-slot.
type Geometry struct {
	SlotHeight float64 // pixels per slot row
}

// DefaultSlotHeight is the grid's row height in pixels.
const DefaultSlotHeight = 40.0

const (
	// A press on an appointment becomes a live drag after this delay...
	dragArmDelay = 200 * time.Millisecond
	// ...or once the pointer travels farther than this, whichever first.
	dragMoveThreshold = 5.0
)

// GestureKind tags the interaction state. Exactly one gesture can be active;
// beginning a new one while another runs is an error, so a selection and a
// drag can never be in flight at the same time.
type GestureKind int

const (
	GestureIdle GestureKind = iota
	GestureSelecting
	GestureDragging
	GestureResizing
)

type dragState struct {
	appt        *Appointment
	pressedAt   time.Time
	originX     float64
	originY     float64
	curX        float64
	curY        float64
	grabOffsetY float64 // where inside the visual box the pointer grabbed
	live        bool
	hasMoved    bool
}

type resizeState struct {
	appt         *Appointment
	originY      float64
	curY         float64
	originHeight float64 // pixels
}

// Gesture is the pointer-interaction state machine for one day view. It is
// owned by a single Engine and is not safe for concurrent use.
type Gesture struct {
	geom        Geometry
	slotMinutes int
	slots       []TimeSlot

	kind      GestureKind
	selAnchor int // slot index where the selection started
	selFocus  int // slot index under the pointer
	drag      dragState
	resize    resizeState
}

// NewGesture builds a state machine over the given grid.
func NewGesture(slots []TimeSlot, slotMinutes int, geom Geometry) *Gesture {
	if geom.SlotHeight <= 0 {
		geom.SlotHeight = DefaultSlotHeight
	}
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	return &Gesture{geom: geom, slotMinutes: slotMinutes, slots: slots}
}

// Kind returns the active gesture.
func (g *Gesture) Kind() GestureKind { return g.kind }

// Reset aborts whatever gesture is in progress.
func (g *Gesture) Reset() {
	g.kind = GestureIdle
	g.drag = dragState{}
	g.resize = resizeState{}
}

// slotTime returns the "HH:MM" of the slot at index i.
func (g *Gesture) slotTime(i int) string { return g.slots[i].Time }

// validSlot reports whether i addresses a grid slot.
func (g *Gesture) validSlot(i int) bool { return i >= 0 && i < len(g.slots) }

// -- Selecting --

// BeginSelect starts a click-drag selection on an empty slot cell.
func (g *Gesture) BeginSelect(slotIndex int) error {
	if g.kind != GestureIdle {
		return ErrGestureActive
	}
	if !g.validSlot(slotIndex) {
		return nil
	}
	g.kind = GestureSelecting
	g.selAnchor = slotIndex
	g.selFocus = slotIndex
	return nil
}

// ExtendSelect moves the selection focus to the slot under the pointer.
// Dragging upward past the anchor is as valid as dragging downward.
func (g *Gesture) ExtendSelect(slotIndex int) {
	if g.kind != GestureSelecting || !g.validSlot(slotIndex) {
		return
	}
	g.selFocus = slotIndex
}

// SelectedSlots returns the contiguous slots between anchor and focus,
// inclusive, in slot-time order regardless of drag direction.
func (g *Gesture) SelectedSlots() []TimeSlot {
	if g.kind != GestureSelecting {
		return nil
	}
	lo, hi := g.selAnchor, g.selFocus
	if lo > hi {
		lo, hi = hi, lo
	}
	out := make([]TimeSlot, hi-lo+1)
	copy(out, g.slots[lo:hi+1])
	return out
}

// CreationSeed are the values the appointment-creation flow opens with.
type CreationSeed struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// EndSelect finishes the selection on pointer-up. When at least one slot is
// selected it returns the creation seed: start is the earliest selected slot
// and end is start plus one slot length per selected slot. The machine
// returns to idle; retaining the highlighted slots across the creation flow
// is the Engine's job.
func (g *Gesture) EndSelect() (CreationSeed, bool) {
	selected := g.SelectedSlots()
	g.Reset()
	if len(selected) == 0 {
		return CreationSeed{}, false
	}
	start, err := ParseClock(selected[0].Time)
	if err != nil {
		return CreationSeed{}, false
	}
	end := start + len(selected)*g.slotMinutes
	return CreationSeed{Start: FormatClock(start), End: FormatClock(end)}, true
}

// -- Dragging --

// PressAppointment records a pointer-down on an appointment block. x and y
// are grid-relative pixels; blockTop is the block's current top edge, used to
// keep the grab point fixed inside the block while dragging.
func (g *Gesture) PressAppointment(appt *Appointment, at time.Time, x, y, blockTop float64) error {
	if g.kind != GestureIdle {
		return ErrGestureActive
	}
	g.kind = GestureDragging
	g.drag = dragState{
		appt:        appt,
		pressedAt:   at,
		originX:     x,
		originY:     y,
		curX:        x,
		curY:        y,
		grabOffsetY: y - blockTop,
	}
	return nil
}

// DragMove advances the drag. The drag only goes live once the arm delay has
// elapsed or the pointer has moved past the threshold, which is what
// distinguishes a drag from a plain click.
func (g *Gesture) DragMove(at time.Time, x, y float64) {
	if g.kind != GestureDragging {
		return
	}
	d := &g.drag
	d.curX = x
	d.curY = y
	dist := math.Hypot(x-d.originX, y-d.originY)
	if dist > dragMoveThreshold {
		d.hasMoved = true
	}
	if !d.live && (d.hasMoved || at.Sub(d.pressedAt) >= dragArmDelay) {
		d.live = true
	}
}

// dropSlotIndex converts the pointer's position into the slot index the
// block's top edge would land on. Movement is quantized to whole slots.
func (g *Gesture) dropSlotIndex() int {
	relativeY := g.drag.curY - g.drag.grabOffsetY
	return int(math.Floor(relativeY / g.geom.SlotHeight))
}

// DragCandidate is the live preview of an in-progress move: the slot-aligned
// interval the appointment would occupy if dropped now. Duration is always
// preserved.
type DragCandidate struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
	Valid bool   `json:"valid"` // false when the pointer is off the grid
}

// DragPreview returns the current candidate, or false when the drag is not
// yet live. Vertical delta alone drives the time; horizontal movement does
// not change the column.
func (g *Gesture) DragPreview() (DragCandidate, bool) {
	if g.kind != GestureDragging || !g.drag.live {
		return DragCandidate{}, false
	}
	idx := g.dropSlotIndex()
	if !g.validSlot(idx) {
		return DragCandidate{Valid: false}, true
	}
	start, err := ParseClock(g.slotTime(idx))
	if err != nil {
		return DragCandidate{Valid: false}, true
	}
	dur := g.drag.appt.Duration()
	return DragCandidate{
		Start: FormatClock(start),
		End:   FormatClock(start + dur),
		Valid: true,
	}, true
}

// DragOutcomeKind says how a drag ended.
type DragOutcomeKind int

const (
	// DragClick: the press never went live, so treat it as a click that opens
	// the edit flow.
	DragClick DragOutcomeKind = iota
	// DragMoveTo: a live drag released over a valid slot.
	DragMoveTo
	// DragDiscard: a live drag released off the grid; the appointment snaps
	// back to its original position.
	DragDiscard
)

// DragOutcome is the terminal result of a drag gesture.
type DragOutcome struct {
	Kind          DragOutcomeKind
	AppointmentID uuid.UUID
	Start         string // set for DragMoveTo
	End           string
}

// ReleaseDrag finishes the gesture on pointer-up. Commits happen only here,
// never on intermediate move ticks.
func (g *Gesture) ReleaseDrag(at time.Time) (DragOutcome, bool) {
	if g.kind != GestureDragging {
		return DragOutcome{}, false
	}
	d := g.drag
	g.Reset()

	if !d.live {
		return DragOutcome{Kind: DragClick, AppointmentID: d.appt.ID}, true
	}

	idx := g.dropSlotIndexFor(d)
	if !g.validSlot(idx) {
		return DragOutcome{Kind: DragDiscard, AppointmentID: d.appt.ID}, true
	}
	start, err := ParseClock(g.slotTime(idx))
	if err != nil {
		return DragOutcome{Kind: DragDiscard, AppointmentID: d.appt.ID}, true
	}
	end := start + d.appt.Duration()
	return DragOutcome{
		Kind:          DragMoveTo,
		AppointmentID: d.appt.ID,
		Start:         FormatClock(start),
		End:           FormatClock(end),
	}, true
}

func (g *Gesture) dropSlotIndexFor(d dragState) int {
	relativeY := d.curY - d.grabOffsetY
	return int(math.Floor(relativeY / g.geom.SlotHeight))
}

// -- Resizing --

// BeginResize records a pointer-down on an appointment's bottom-edge handle.
func (g *Gesture) BeginResize(appt *Appointment, y float64) error {
	if g.kind != GestureIdle {
		return ErrGestureActive
	}
	g.kind = GestureResizing
	g.resize = resizeState{
		appt:         appt,
		originY:      y,
		curY:         y,
		originHeight: float64(appt.Duration()) / float64(g.slotMinutes) * g.geom.SlotHeight,
	}
	return nil
}

// ResizeMove tracks vertical delta only.
func (g *Gesture) ResizeMove(y float64) {
	if g.kind != GestureResizing {
		return
	}
	g.resize.curY = y
}

// resizeSlots converts the current handle position to a duration in slots:
// round the dragged height to the nearest slot, never below one.
func (g *Gesture) resizeSlots(r resizeState) int {
	height := r.originHeight + (r.curY - r.originY)
	if height < g.geom.SlotHeight {
		height = g.geom.SlotHeight
	}
	n := int(math.Round(height / g.geom.SlotHeight))
	if n < 1 {
		n = 1
	}
	return n
}

// ResizePreview returns the candidate end time for the live preview. The
// start never changes during a resize.
func (g *Gesture) ResizePreview() (DragCandidate, bool) {
	if g.kind != GestureResizing {
		return DragCandidate{}, false
	}
	start, err := ParseClock(g.resize.appt.Start)
	if err != nil {
		return DragCandidate{Valid: false}, true
	}
	end := start + g.resizeSlots(g.resize)*g.slotMinutes
	return DragCandidate{Start: g.resize.appt.Start, End: FormatClock(end), Valid: true}, true
}

// ResizeOutcome is the terminal result of a resize gesture.
type ResizeOutcome struct {
	AppointmentID uuid.UUID
	Start         string
	End           string
}

// EndResize finishes the gesture on pointer-up.
func (g *Gesture) EndResize() (ResizeOutcome, bool) {
	if g.kind != GestureResizing {
		return ResizeOutcome{}, false
	}
	r := g.resize
	g.Reset()
	start, err := ParseClock(r.appt.Start)
	if err != nil {
		return ResizeOutcome{}, false
	}
	end := start + g.resizeSlots(r)*g.slotMinutes
	return ResizeOutcome{
		AppointmentID: r.appt.ID,
		Start:         r.appt.Start,
		End:           FormatClock(end),
	}, true
}
