package schedule

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// -- mocks --

type mockApptRepo struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*Appointment
	createErr error
	updateErr error

	// When set, the next ListByDate captures its snapshot, closes
	// listEntered, then blocks on blockList before returning.
	blockList   chan struct{}
	listEntered chan struct{}
}

func newMockApptRepo(appts ...*Appointment) *mockApptRepo {
	m := &mockApptRepo{items: make(map[uuid.UUID]*Appointment)}
	for _, a := range appts {
		cp := *a
		m.items[a.ID] = &cp
	}
	return m
}

func (m *mockApptRepo) ListByDate(ctx context.Context, clinicID uuid.UUID, date string) ([]*Appointment, error) {
	m.mu.Lock()
	var out []*Appointment
	for _, a := range m.items {
		if a.ClinicID == clinicID && a.Date == date {
			cp := *a
			out = append(out, &cp)
		}
	}
	gate := m.blockList
	entered := m.listEntered
	m.blockList = nil
	m.listEntered = nil
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	if gate != nil {
		if entered != nil {
			close(entered)
		}
		<-gate
	}
	return out, nil
}

func (m *mockApptRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) Create(ctx context.Context, a *Appointment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) Update(ctx context.Context, a *Appointment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[a.ID]; !ok {
		return errors.New("not found")
	}
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) get(t *testing.T, id uuid.UUID) *Appointment {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		t.Fatalf("appointment %s not in store", id)
	}
	cp := *a
	return &cp
}

type mockSettings struct {
	hours       BusinessHours
	breaks      BreakTimes
	holidays    Holidays
	slotMinutes int
	scope       ConflictScope

	hoursHook func() // runs inside BusinessHours when set
}

func (m *mockSettings) BusinessHours(ctx context.Context, clinicID uuid.UUID) (BusinessHours, error) {
	if m.hoursHook != nil {
		m.hoursHook()
	}
	return m.hours, nil
}
func (m *mockSettings) BreakTimes(ctx context.Context, clinicID uuid.UUID) (BreakTimes, error) {
	return m.breaks, nil
}
func (m *mockSettings) Holidays(ctx context.Context, clinicID uuid.UUID) (Holidays, error) {
	return m.holidays, nil
}
func (m *mockSettings) SlotMinutes(ctx context.Context, clinicID uuid.UUID) (int, error) {
	return m.slotMinutes, nil
}
func (m *mockSettings) Scope(ctx context.Context, clinicID uuid.UUID) (ConflictScope, error) {
	return m.scope, nil
}

type mockRoster struct{ staff []WorkingStaff }

func (m *mockRoster) WorkingOn(ctx context.Context, clinicID uuid.UUID, date string) ([]WorkingStaff, error) {
	out := make([]WorkingStaff, len(m.staff))
	copy(out, m.staff)
	return out, nil
}

type mockRecorder struct {
	mu      sync.Mutex
	entries []ChangeEntry
}

func (m *mockRecorder) Record(ctx context.Context, entry ChangeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// -- fixtures --

var testClinicID = uuid.New()

func defaultSettings() *mockSettings {
	return &mockSettings{
		hours:       weekHours(Interval{Start: "09:00", End: "18:00"}),
		breaks:      BreakTimes{time.Monday: {Start: "12:00", End: "13:00"}},
		holidays:    Holidays{time.Sunday: true},
		slotMinutes: 15,
		scope:       ScopeClinic,
	}
}

func clinicAppt(start, end string, staff ...uuid.UUID) *Appointment {
	a := appt(start, end, staff...)
	a.ClinicID = testClinicID
	return a
}

func newTestEngine(t *testing.T, repo *mockApptRepo, settings *mockSettings, rec *mockRecorder) *Engine {
	t.Helper()
	eng := NewEngine(testClinicID, EngineDeps{
		Appointments: repo,
		Settings:     settings,
		Roster:       &mockRoster{},
		Changes:      rec,
		Logger:       zerolog.Nop(),
		Geometry:     Geometry{SlotHeight: 40},
	})
	if err := eng.Load(context.Background(), monday); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return eng
}

// -- commit protocol --

func TestCommitMovePreservesDuration(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	repo := newMockApptRepo(a)
	rec := &mockRecorder{}
	eng := newTestEngine(t, repo, defaultSettings(), rec)

	if err := eng.CommitMove(context.Background(), a.ID, "15:00", false); err != nil {
		t.Fatalf("CommitMove: %v", err)
	}

	stored := repo.get(t, a.ID)
	if stored.Start != "15:00" || stored.End != "15:30" {
		t.Errorf("stored window = %s-%s, want 15:00-15:30", stored.Start, stored.End)
	}
	if got := eng.Appointments(); len(got) != 1 || got[0].Start != "15:00" {
		t.Error("engine cache not refreshed after commit")
	}
	if rec.count() != 1 {
		t.Errorf("recorded %d changes, want 1", rec.count())
	}
}

func TestCommitMoveConflictLeavesStoreUnchanged(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	b := clinicAppt("14:30", "15:00")
	repo := newMockApptRepo(a, b)
	rec := &mockRecorder{}
	eng := newTestEngine(t, repo, defaultSettings(), rec)

	// 14:15-14:45 would overlap b's 14:30-15:00.
	err := eng.CommitMove(context.Background(), a.ID, "14:15", false)
	if !IsConflict(err) {
		t.Fatalf("err = %v, want conflict", err)
	}
	var ce *ConflictError
	if errors.As(err, &ce) && ce.Other.ID != b.ID {
		t.Error("conflict error should carry the blocking appointment")
	}

	if stored := repo.get(t, a.ID); stored.Start != "14:00" {
		t.Errorf("rejected move mutated the store: start = %s", stored.Start)
	}
	if rec.count() != 0 {
		t.Error("rejected move must not be recorded")
	}
}

func TestCommitMoveBackToBackAllowed(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	b := clinicAppt("15:00", "15:30")
	repo := newMockApptRepo(a, b)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	// 14:30-15:00 touches b exactly at its start.
	if err := eng.CommitMove(context.Background(), a.ID, "14:30", false); err != nil {
		t.Fatalf("back-to-back move rejected: %v", err)
	}
}

func TestCommitMoveIntoBreakNeedsConfirmation(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	repo := newMockApptRepo(a)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	err := eng.CommitMove(context.Background(), a.ID, "12:00", false)
	if !errors.Is(err, ErrNeedsConfirmation) {
		t.Fatalf("err = %v, want ErrNeedsConfirmation", err)
	}
	if stored := repo.get(t, a.ID); stored.Start != "14:00" {
		t.Error("unconfirmed break move mutated the store")
	}

	// The same move goes through once the user confirms.
	if err := eng.CommitMove(context.Background(), a.ID, "12:00", true); err != nil {
		t.Fatalf("confirmed move: %v", err)
	}
	if stored := repo.get(t, a.ID); stored.Start != "12:00" || stored.End != "12:30" {
		t.Errorf("stored window = %s-%s, want 12:00-12:30", stored.Start, stored.End)
	}
}

func TestCommitMoveRejectsUnaligned(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	repo := newMockApptRepo(a)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	for _, bad := range []string{"14:07", "garbage"} {
		if err := eng.CommitMove(context.Background(), a.ID, bad, false); !errors.Is(err, ErrNotSlotAligned) {
			t.Errorf("CommitMove(%q): err = %v, want ErrNotSlotAligned", bad, err)
		}
	}
}

func TestCommitMoveUpdateFailureKeepsCache(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	repo := newMockApptRepo(a)
	repo.updateErr = errors.New("connection reset")
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	if err := eng.CommitMove(context.Background(), a.ID, "15:00", false); err == nil {
		t.Fatal("expected persistence error")
	}
	if got := eng.Appointments(); len(got) != 1 || got[0].Start != "14:00" {
		t.Error("failed commit must leave the cached view untouched")
	}
}

func TestCommitResizeKeepsStart(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	repo := newMockApptRepo(a)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	if err := eng.CommitResize(context.Background(), a.ID, "15:00", false); err != nil {
		t.Fatalf("CommitResize: %v", err)
	}
	stored := repo.get(t, a.ID)
	if stored.Start != "14:00" || stored.End != "15:00" {
		t.Errorf("stored window = %s-%s, want 14:00-15:00", stored.Start, stored.End)
	}
}

func TestCommitResizeGridEndBoundary(t *testing.T) {
	// The last grid slot is 18:00; an end of 18:15 is one slot past it and is
	// the only off-grid end the engine accepts.
	a := clinicAppt("17:30", "18:00")
	repo := newMockApptRepo(a)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	if err := eng.CommitResize(context.Background(), a.ID, "18:15", false); err != nil {
		t.Fatalf("resize to grid boundary: %v", err)
	}
	if err := eng.CommitResize(context.Background(), a.ID, "18:30", false); !errors.Is(err, ErrNotSlotAligned) {
		t.Errorf("resize past boundary: err = %v, want ErrNotSlotAligned", err)
	}
}

// -- creation flow --

func TestCreateFromSelection(t *testing.T) {
	repo := newMockApptRepo()
	rec := &mockRecorder{}
	eng := newTestEngine(t, repo, defaultSettings(), rec)

	if err := eng.BeginSelect(0); err != nil {
		t.Fatal(err)
	}
	eng.ExtendSelect(2)
	seed, ok := eng.EndSelect()
	if !ok {
		t.Fatal("expected a creation seed")
	}
	if seed.Start != "09:00" || seed.End != "09:45" {
		t.Fatalf("seed = %s-%s, want 09:00-09:45", seed.Start, seed.End)
	}
	if view := eng.View(); len(view.Selection) != 3 {
		t.Errorf("selection should stay visible during the creation flow, got %d slots", len(view.Selection))
	}

	created, err := eng.CreateFromSelection(context.Background(), CreateRequest{
		PatientID: uuid.New(),
		Start:     seed.Start,
		End:       seed.End,
	})
	if err != nil {
		t.Fatalf("CreateFromSelection: %v", err)
	}
	stored := repo.get(t, created.ID)
	if stored.Start != "09:00" || stored.End != "09:45" {
		t.Errorf("stored window = %s-%s, want 09:00-09:45", stored.Start, stored.End)
	}
	if stored.Status != StatusScheduled {
		t.Errorf("new appointment status = %s, want scheduled", stored.Status)
	}
	if view := eng.View(); view.Selection != nil {
		t.Error("selection should clear after creation")
	}
	if rec.count() != 1 {
		t.Errorf("recorded %d changes, want 1", rec.count())
	}
}

func TestCreateConflictRejected(t *testing.T) {
	existing := clinicAppt("09:00", "10:00")
	repo := newMockApptRepo(existing)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	_, err := eng.CreateFromSelection(context.Background(), CreateRequest{
		PatientID: uuid.New(),
		Start:     "09:30",
		End:       "10:00",
	})
	if !IsConflict(err) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if got := eng.Appointments(); len(got) != 1 {
		t.Errorf("rejected create changed the day: %d appointments", len(got))
	}
}

func TestCreateRequiresPatient(t *testing.T) {
	repo := newMockApptRepo()
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	_, err := eng.CreateFromSelection(context.Background(), CreateRequest{
		Start: "09:00",
		End:   "09:30",
	})
	if err == nil {
		t.Fatal("creation without a patient must fail")
	}
}

// -- gesture-driven commits --

func TestDragReleaseCommitsMove(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	repo := newMockApptRepo(a)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	t0 := time.Now()
	// 14:00 is 20 slots below the 09:00 grid top, so the block top is 800px.
	if err := eng.PressAppointment(a.ID, t0, 50, 810); err != nil {
		t.Fatal(err)
	}
	// Down to slot 24 = 15:00.
	if _, ok := eng.DragTick(t0.Add(100*time.Millisecond), 50, 975); !ok {
		t.Fatal("expected a live drag preview")
	}
	outcome, err := eng.ReleaseDrag(context.Background(), t0.Add(120*time.Millisecond))
	if err != nil {
		t.Fatalf("ReleaseDrag: %v", err)
	}
	if outcome.Kind != DragMoveTo || outcome.Start != "15:00" {
		t.Fatalf("outcome = %+v, want move to 15:00", outcome)
	}
	if stored := repo.get(t, a.ID); stored.Start != "15:00" || stored.End != "15:30" {
		t.Errorf("stored window = %s-%s, want 15:00-15:30", stored.Start, stored.End)
	}
}

func TestDragClickDoesNotCommit(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	repo := newMockApptRepo(a)
	rec := &mockRecorder{}
	eng := newTestEngine(t, repo, defaultSettings(), rec)

	t0 := time.Now()
	if err := eng.PressAppointment(a.ID, t0, 50, 810); err != nil {
		t.Fatal(err)
	}
	outcome, err := eng.ReleaseDrag(context.Background(), t0.Add(50*time.Millisecond))
	if err != nil {
		t.Fatalf("ReleaseDrag: %v", err)
	}
	if outcome.Kind != DragClick {
		t.Fatalf("outcome kind = %v, want DragClick", outcome.Kind)
	}
	if stored := repo.get(t, a.ID); stored.Start != "14:00" {
		t.Error("a plain click must not move the appointment")
	}
	if rec.count() != 0 {
		t.Error("a plain click must not be recorded")
	}
}

func TestDragPreviewFlagsConflictAndBreak(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	b := clinicAppt("14:30", "15:00")
	repo := newMockApptRepo(a, b)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	t0 := time.Now()
	if err := eng.PressAppointment(a.ID, t0, 50, 810); err != nil {
		t.Fatal(err)
	}
	// Slot 21 = 14:15; candidate 14:15-14:45 overlaps b.
	p, ok := eng.DragTick(t0.Add(100*time.Millisecond), 50, 855)
	if !ok || !p.Valid {
		t.Fatalf("expected a valid preview, got %+v", p)
	}
	if !p.Conflict {
		t.Error("preview over an occupied window must flag the conflict")
	}

	// Slot 13 = 12:15; candidate 12:15-12:45 sits inside the lunch break.
	p, ok = eng.DragTick(t0.Add(110*time.Millisecond), 50, 540)
	if !ok || !p.Valid {
		t.Fatalf("expected a valid preview, got %+v", p)
	}
	if p.Conflict {
		t.Error("break window is not a booking conflict")
	}
	if !p.BreakOverlap {
		t.Error("preview over the break must flag the overlap")
	}
}

func TestResizeEndCommits(t *testing.T) {
	a := clinicAppt("14:00", "14:30")
	repo := newMockApptRepo(a)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	if err := eng.BeginResize(a.ID, 880); err != nil {
		t.Fatal(err)
	}
	if _, ok := eng.ResizeTick(910); !ok {
		t.Fatal("expected a resize preview")
	}
	outcome, err := eng.EndResize(context.Background())
	if err != nil {
		t.Fatalf("EndResize: %v", err)
	}
	if outcome.End != "14:45" {
		t.Fatalf("outcome end = %s, want 14:45", outcome.End)
	}
	if stored := repo.get(t, a.ID); stored.End != "14:45" {
		t.Errorf("stored end = %s, want 14:45", stored.End)
	}
}

// -- view assembly --

func TestViewClassifiesSlots(t *testing.T) {
	repo := newMockApptRepo()
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	view := eng.View()
	if view.Date != "2026-01-26" {
		t.Errorf("date = %s", view.Date)
	}
	if view.Holiday {
		t.Error("Monday is not a holiday")
	}
	if view.Prev != "2026-01-25" || view.Next != "2026-01-27" {
		t.Errorf("navigation = %s / %s", view.Prev, view.Next)
	}
	byTime := make(map[string]SlotView, len(view.Slots))
	for _, s := range view.Slots {
		byTime[s.Time] = s
	}
	if !byTime["12:30"].Break {
		t.Error("12:30 should classify as break")
	}
	if byTime["10:00"].Break || byTime["10:00"].OutsideHours {
		t.Error("10:00 should be plain open time")
	}
}

// -- refresh fencing --

func TestStaleLoadDiscarded(t *testing.T) {
	a := clinicAppt("10:00", "10:30")
	repo := newMockApptRepo(a)
	eng := newTestEngine(t, repo, defaultSettings(), &mockRecorder{})

	// A second Load that snapshots the old day, then stalls before applying.
	entered := make(chan struct{})
	release := make(chan struct{})
	repo.mu.Lock()
	repo.blockList = release
	repo.listEntered = entered
	repo.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- eng.Load(context.Background(), monday)
	}()
	<-entered

	// A newer mutation lands while the stale load is in flight.
	if err := eng.CommitMove(context.Background(), a.ID, "11:00", false); err != nil {
		t.Fatalf("CommitMove: %v", err)
	}
	close(release)
	if err := <-done; !errors.Is(err, ErrStaleView) {
		t.Fatalf("stale Load: err = %v, want ErrStaleView", err)
	}

	got := eng.Appointments()
	if len(got) != 1 || got[0].Start != "11:00" {
		t.Errorf("stale load clobbered fresh state: start = %s, want 11:00", got[0].Start)
	}
}
