package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine owns all state for one day view of one clinic: the slot grid, the
// appointment cache, the roster, the classifier, and the in-progress gesture.
// It answers two questions on every gesture: is this placement legal, and
// what mutation should be committed. The mutation itself is delegated to
// the persistence collaborators.
//
// A single view owns its engine; methods are safe to call from concurrent
// request handlers but the gesture flow itself is inherently sequential.
type Engine struct {
	log      zerolog.Logger
	repo     AppointmentRepository
	settings SettingsSource
	roster   RosterSource
	changes  ChangeRecorder // optional

	clinicID uuid.UUID
	geom     Geometry

	mu          sync.Mutex
	date        time.Time
	dateStr     string
	slotMinutes int
	scope       ConflictScope
	classifier  Classifier
	slots       []TimeSlot
	slotIndex   map[string]int
	appts       []*Appointment
	staff       []WorkingStaff
	gesture     *Gesture
	selection   []TimeSlot // survives until the creation flow closes

	// Monotonic fence: a refresh that loses the race to a newer one is
	// discarded instead of clobbering fresher state.
	issuedSeq  uint64
	appliedSeq uint64
}

// EngineDeps bundles the collaborators an Engine needs.
type EngineDeps struct {
	Appointments AppointmentRepository
	Settings     SettingsSource
	Roster       RosterSource
	Changes      ChangeRecorder
	Logger       zerolog.Logger
	Geometry     Geometry
}

// NewEngine builds an engine for one clinic. Call Load before using it.
func NewEngine(clinicID uuid.UUID, deps EngineDeps) *Engine {
	geom := deps.Geometry
	if geom.SlotHeight <= 0 {
		geom.SlotHeight = DefaultSlotHeight
	}
	return &Engine{
		log:      deps.Logger.With().Str("component", "schedule-engine").Logger(),
		repo:     deps.Appointments,
		settings: deps.Settings,
		roster:   deps.Roster,
		changes:  deps.Changes,
		clinicID: clinicID,
		geom:     geom,
		scope:    ScopeClinic,
	}
}

// Load fetches the clinic configuration, the roster, and the day's
// appointments, then rebuilds the grid. Switching dates always goes through
// Load; nothing is patched incrementally.
func (e *Engine) Load(ctx context.Context, date time.Time) error {
	seq := e.nextSeq()

	hours, err := e.settings.BusinessHours(ctx, e.clinicID)
	if err != nil {
		return fmt.Errorf("fetch business hours: %w", err)
	}
	breaks, err := e.settings.BreakTimes(ctx, e.clinicID)
	if err != nil {
		return fmt.Errorf("fetch break times: %w", err)
	}
	holidays, err := e.settings.Holidays(ctx, e.clinicID)
	if err != nil {
		return fmt.Errorf("fetch holidays: %w", err)
	}
	slotMinutes, err := e.settings.SlotMinutes(ctx, e.clinicID)
	if err != nil {
		return fmt.Errorf("fetch slot minutes: %w", err)
	}
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	scope, err := e.settings.Scope(ctx, e.clinicID)
	if err != nil {
		return fmt.Errorf("fetch conflict scope: %w", err)
	}
	if scope == "" {
		scope = ScopeClinic
	}

	dateStr := date.Format("2006-01-02")
	staff, err := e.roster.WorkingOn(ctx, e.clinicID, dateStr)
	if err != nil {
		return fmt.Errorf("fetch working staff: %w", err)
	}
	SortRoster(staff)

	appts, err := e.repo.ListByDate(ctx, e.clinicID, dateStr)
	if err != nil {
		return fmt.Errorf("fetch appointments: %w", err)
	}

	slots := BuildDayGrid(date, hours, slotMinutes)
	index := make(map[string]int, len(slots))
	for i, s := range slots {
		index[s.Time] = i
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq < e.appliedSeq {
		e.log.Debug().Uint64("seq", seq).Msg("discarding stale load")
		return ErrStaleView
	}
	e.appliedSeq = seq
	e.date = date
	e.dateStr = dateStr
	e.slotMinutes = slotMinutes
	e.scope = scope
	e.classifier = Classifier{Hours: hours, Breaks: breaks, Holidays: holidays}
	e.slots = slots
	e.slotIndex = index
	e.appts = appts
	e.staff = staff
	e.gesture = NewGesture(slots, slotMinutes, e.geom)
	e.selection = nil
	return nil
}

// refresh re-fetches only the day's appointments after a committed mutation.
// There is no optimistic merge: the server copy is the truth.
func (e *Engine) refresh(ctx context.Context) error {
	seq := e.nextSeq()
	appts, err := e.repo.ListByDate(ctx, e.clinicID, e.dateStr)
	if err != nil {
		return fmt.Errorf("refresh appointments: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq < e.appliedSeq {
		e.log.Debug().Uint64("seq", seq).Msg("discarding stale refresh")
		return ErrStaleView
	}
	e.appliedSeq = seq
	e.appts = appts
	return nil
}

func (e *Engine) nextSeq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.issuedSeq++
	return e.issuedSeq
}

// -- Rendering queries --

// SlotView is one grid cell with its availability classification.
type SlotView struct {
	TimeSlot
	OutsideHours bool `json:"outside_hours"`
	Break        bool `json:"break"`
}

// DayView is everything the host UI needs to render the grid.
type DayView struct {
	Date        string         `json:"date"`
	Holiday     bool           `json:"holiday"`
	SlotMinutes int            `json:"slot_minutes"`
	Slots       []SlotView     `json:"slots"`
	Staff       []WorkingStaff `json:"staff"`
	Blocks      []Placement    `json:"blocks"`
	Selection   []TimeSlot     `json:"selection,omitempty"`
	Prev        string         `json:"prev_date"`
	Next        string         `json:"next_date"`
}

// View assembles the rendering-ready day view from current state.
func (e *Engine) View() DayView {
	e.mu.Lock()
	defer e.mu.Unlock()

	day := e.date.Weekday()
	slots := make([]SlotView, len(e.slots))
	for i, s := range e.slots {
		slots[i] = SlotView{
			TimeSlot:     s,
			OutsideHours: e.classifier.OutsideBusinessHours(day, s.Time),
			Break:        e.classifier.InBreak(day, s.Time),
		}
	}

	visibleStart := 0
	if len(e.slots) > 0 {
		visibleStart = e.slots[0].Hour*60 + e.slots[0].Minute
	}

	return DayView{
		Date:        e.dateStr,
		Holiday:     e.classifier.IsHoliday(day),
		SlotMinutes: e.slotMinutes,
		Slots:       slots,
		Staff:       e.staff,
		Blocks:      PlacementBlocks(e.appts, e.staff, visibleStart, e.slotMinutes),
		Selection:   e.selection,
		Prev:        e.date.AddDate(0, 0, -1).Format("2006-01-02"),
		Next:        e.date.AddDate(0, 0, 1).Format("2006-01-02"),
	}
}

// Appointments returns the cached day's appointments.
func (e *Engine) Appointments() []*Appointment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Appointment, len(e.appts))
	copy(out, e.appts)
	return out
}

// -- Selection gestures --

// BeginSelect starts a slot selection.
func (e *Engine) BeginSelect(slotIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gesture.BeginSelect(slotIndex)
}

// ExtendSelect grows or shrinks the selection toward the slot under the
// pointer.
func (e *Engine) ExtendSelect(slotIndex int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gesture.ExtendSelect(slotIndex)
}

// EndSelect completes the selection and returns the seed for the creation
// flow. The highlighted slots stay visible until ClearSelection.
func (e *Engine) EndSelect() (CreationSeed, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	selected := e.gesture.SelectedSlots()
	seed, ok := e.gesture.EndSelect()
	if ok {
		e.selection = selected
	}
	return seed, ok
}

// ClearSelection drops the retained selection when the creation flow closes.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection = nil
}

// -- Drag / resize gestures --

// PreviewState decorates a gesture candidate with live legality flags so the
// host can highlight valid and invalid drops on every move tick.
type PreviewState struct {
	DragCandidate
	Conflict     bool `json:"conflict"`
	BreakOverlap bool `json:"break_overlap"`
}

// PressAppointment begins a potential drag on an appointment block.
func (e *Engine) PressAppointment(id uuid.UUID, at time.Time, x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	appt := e.findLocked(id)
	if appt == nil {
		return fmt.Errorf("appointment %s not in view", id)
	}
	start, err := ParseClock(appt.Start)
	if err != nil {
		return err
	}
	visibleStart := 0
	if len(e.slots) > 0 {
		visibleStart = e.slots[0].Hour*60 + e.slots[0].Minute
	}
	blockTop := float64(start-visibleStart) / float64(e.slotMinutes) * e.geom.SlotHeight
	return e.gesture.PressAppointment(appt, at, x, y, blockTop)
}

// DragTick advances a drag and returns the decorated preview.
func (e *Engine) DragTick(at time.Time, x, y float64) (PreviewState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gesture.DragMove(at, x, y)
	cand, ok := e.gesture.DragPreview()
	if !ok {
		return PreviewState{}, false
	}
	return e.decorateLocked(cand, e.gesture.drag.appt), true
}

// ReleaseDrag ends a drag. A press that never went live is reported as a
// click so the host opens the edit flow; a live drag over a valid slot is
// committed through the full protocol. ErrNeedsConfirmation leaves the
// appointment untouched; the host confirms and calls CommitMove directly.
func (e *Engine) ReleaseDrag(ctx context.Context, at time.Time) (DragOutcome, error) {
	e.mu.Lock()
	outcome, ok := e.gesture.ReleaseDrag(at)
	e.mu.Unlock()
	if !ok {
		return DragOutcome{}, nil
	}
	if outcome.Kind != DragMoveTo {
		return outcome, nil
	}
	return outcome, e.CommitMove(ctx, outcome.AppointmentID, outcome.Start, false)
}

// BeginResize begins a resize from the appointment's bottom-edge handle.
func (e *Engine) BeginResize(id uuid.UUID, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	appt := e.findLocked(id)
	if appt == nil {
		return fmt.Errorf("appointment %s not in view", id)
	}
	return e.gesture.BeginResize(appt, y)
}

// ResizeTick advances a resize and returns the decorated preview.
func (e *Engine) ResizeTick(y float64) (PreviewState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gesture.ResizeMove(y)
	cand, ok := e.gesture.ResizePreview()
	if !ok {
		return PreviewState{}, false
	}
	return e.decorateLocked(cand, e.gesture.resize.appt), true
}

// EndResize ends a resize and commits the new end time.
func (e *Engine) EndResize(ctx context.Context) (ResizeOutcome, error) {
	e.mu.Lock()
	outcome, ok := e.gesture.EndResize()
	e.mu.Unlock()
	if !ok {
		return ResizeOutcome{}, nil
	}
	return outcome, e.CommitResize(ctx, outcome.AppointmentID, outcome.End, false)
}

func (e *Engine) decorateLocked(cand DragCandidate, appt *Appointment) PreviewState {
	p := PreviewState{DragCandidate: cand}
	if !cand.Valid {
		return p
	}
	day := e.date.Weekday()
	p.BreakOverlap = e.classifier.BreakOverlaps(day, cand.Start, cand.End)
	p.Conflict = FindConflict(Candidate{
		Start:  cand.Start,
		End:    cand.End,
		Staff:  appt.Staff,
		UnitID: appt.UnitID,
	}, appt.ID, e.appts, e.scope) != nil
	return p
}

func (e *Engine) findLocked(id uuid.UUID) *Appointment {
	for _, a := range e.appts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// -- Commit protocol --

// alignedLocked verifies both bounds land on generated slot times, except
// that the end may also be one slot past the final grid slot.
func (e *Engine) alignedLocked(start, end string) bool {
	if _, ok := e.slotIndex[start]; !ok {
		return false
	}
	if _, ok := e.slotIndex[end]; ok {
		return true
	}
	if len(e.slots) == 0 {
		return false
	}
	last, err1 := ParseClock(e.slots[len(e.slots)-1].Time)
	em, err2 := ParseClock(end)
	return err1 == nil && err2 == nil && em == last+e.slotMinutes
}

// validate runs steps 1–3 of the commit protocol: slot alignment, conflict,
// break confirmation. It returns the typed error for whichever check fails.
func (e *Engine) validate(cand Candidate, excludeID uuid.UUID, confirmed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.alignedLocked(cand.Start, cand.End) {
		e.log.Warn().Str("start", cand.Start).Str("end", cand.End).
			Msg("rejecting non-slot-aligned interval")
		return ErrNotSlotAligned
	}
	if other := FindConflict(cand, excludeID, e.appts, e.scope); other != nil {
		return &ConflictError{Other: other}
	}
	if !confirmed && e.classifier.BreakOverlaps(e.date.Weekday(), cand.Start, cand.End) {
		return ErrNeedsConfirmation
	}
	return nil
}

// CommitMove applies a validated move: duration is preserved, only the start
// changes. On success the day is re-fetched; on any failure the local cache
// is untouched.
func (e *Engine) CommitMove(ctx context.Context, id uuid.UUID, newStart string, confirmed bool) error {
	e.mu.Lock()
	appt := e.findLocked(id)
	e.mu.Unlock()
	if appt == nil {
		return fmt.Errorf("appointment %s not in view", id)
	}

	s, err := ParseClock(newStart)
	if err != nil {
		return ErrNotSlotAligned
	}
	newEnd := FormatClock(s + appt.Duration())

	if err := e.validate(Candidate{Start: newStart, End: newEnd, Staff: appt.Staff, UnitID: appt.UnitID}, id, confirmed); err != nil {
		return err
	}

	before := *appt
	updated := *appt
	updated.Start = newStart
	updated.End = newEnd
	if err := e.repo.Update(ctx, &updated); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	e.recordChange(ctx, "update", &before, &updated)
	// A stale refresh means a newer snapshot already landed; the commit itself
	// succeeded, so the caller sees success.
	if err := e.refresh(ctx); err != nil && !errors.Is(err, ErrStaleView) {
		return err
	}
	return nil
}

// CommitResize applies a validated resize: the start never changes.
func (e *Engine) CommitResize(ctx context.Context, id uuid.UUID, newEnd string, confirmed bool) error {
	e.mu.Lock()
	appt := e.findLocked(id)
	e.mu.Unlock()
	if appt == nil {
		return fmt.Errorf("appointment %s not in view", id)
	}

	if err := e.validate(Candidate{Start: appt.Start, End: newEnd, Staff: appt.Staff, UnitID: appt.UnitID}, id, confirmed); err != nil {
		return err
	}

	before := *appt
	updated := *appt
	updated.End = newEnd
	if err := e.repo.Update(ctx, &updated); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	e.recordChange(ctx, "update", &before, &updated)
	if err := e.refresh(ctx); err != nil && !errors.Is(err, ErrStaleView) {
		return err
	}
	return nil
}

// CreateRequest carries the fields captured by the creation flow.
type CreateRequest struct {
	PatientID uuid.UUID                  `json:"patient_id"`
	Start     string                     `json:"start_time"`
	End       string                     `json:"end_time"`
	Staff     [MaxAssignments]*uuid.UUID `json:"staff_ids"`
	Menus     [MaxAssignments]*uuid.UUID `json:"menu_ids"`
	UnitID    *uuid.UUID                 `json:"unit_id,omitempty"`
	Memo      string                     `json:"memo,omitempty"`
	Confirmed bool                       `json:"confirmed,omitempty"`
}

// CreateFromSelection runs the commit protocol for a brand-new appointment
// seeded by a completed selection, then clears the retained selection.
func (e *Engine) CreateFromSelection(ctx context.Context, req CreateRequest) (*Appointment, error) {
	appt := &Appointment{
		ClinicID:  e.clinicID,
		PatientID: req.PatientID,
		Date:      e.dateStr,
		Start:     req.Start,
		End:       req.End,
		Staff:     req.Staff,
		Menus:     req.Menus,
		UnitID:    req.UnitID,
		Memo:      req.Memo,
		Status:    StatusScheduled,
	}
	if err := appt.Validate(); err != nil {
		return nil, err
	}
	if err := e.validate(Candidate{Start: req.Start, End: req.End, Staff: req.Staff, UnitID: req.UnitID}, uuid.Nil, req.Confirmed); err != nil {
		return nil, err
	}
	if err := e.repo.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	e.recordChange(ctx, "create", nil, appt)
	e.ClearSelection()
	if err := e.refresh(ctx); err != nil && !errors.Is(err, ErrStaleView) {
		return appt, err
	}
	return appt, nil
}

func (e *Engine) recordChange(ctx context.Context, action string, before, after *Appointment) {
	if e.changes == nil {
		return
	}
	var id uuid.UUID
	if after != nil {
		id = after.ID
	} else if before != nil {
		id = before.ID
	}
	entry := ChangeEntry{
		AppointmentID: id,
		Action:        action,
		Before:        before,
		After:         after,
		At:            time.Now(),
	}
	if err := e.changes.Record(ctx, entry); err != nil {
		e.log.Error().Err(err).Str("action", action).Msg("recording appointment change failed")
	}
}
