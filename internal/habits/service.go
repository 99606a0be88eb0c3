package habits

import (
	"fmt"
	"sync"
	"time"

	"github.com/habiter/habiter/internal/constants"
	apperr "github.com/habiter/habiter/internal/errors"
	"github.com/habiter/habiter/internal/logger"
	"github.com/habiter/habiter/internal/models"
	"github.com/habiter/habiter/internal/repo"
	"github.com/habiter/habiter/internal/storage"
	"github.com/habiter/habiter/internal/utils"
)

// SetupStatus reports what the setup orchestration did.
type SetupStatus int

const (
	// SetupDeclined means slot generation never ran and was not forced.
	SetupDeclined SetupStatus = iota
	// SetupSatisfied means the watermark is still in the future; nothing to do.
	SetupSatisfied
	// SetupRan means a new generation pass completed.
	SetupRan
)

// SelectableHabit pairs a habit with the single slot currently eligible
// for a check-in.
type SelectableHabit struct {
	Habit models.Habit
	Slot  models.Slot
}

// Service orchestrates slot generation, selection and check-in
// recording on top of the generic repositories.
type Service struct {
	store  *storage.Store
	habits *repo.Repo
	slots  *repo.Repo
	events *repo.Repo

	// Check-ins against the same slot are serialized so two
	// near-simultaneous submissions cannot both pass re-validation.
	slotLocks keyedMutex
}

func NewService(store *storage.Store) *Service {
	return &Service{
		store:  store,
		habits: repo.New(store, models.HabitsSchema),
		slots:  repo.New(store, models.SlotsSchema),
		events: repo.New(store, models.EventsSchema),
	}
}

// Habits exposes the habits repository for data-entry collaborators.
func (s *Service) Habits() *repo.Repo { return s.habits }

// Slots exposes the slots repository for calendar/listing collaborators.
func (s *Service) Slots() *repo.Repo { return s.slots }

// Events exposes the events repository for calendar/listing collaborators.
func (s *Service) Events() *repo.Repo { return s.events }

// ManageableHabits returns the habits due for slot generation: those
// whose watermark has not reached windowStart yet.
func (s *Service) ManageableHabits(windowStart time.Time) ([]models.Habit, error) {
	cutoff := models.EncodeTime(windowStart)
	recs, err := s.habits.Index(func(rec repo.Record) bool {
		mf, _ := rec["manage_from"].(string)
		// Fixed-width timestamps order lexicographically; "" means
		// generation never ran.
		return mf <= cutoff
	}, nil)
	if err != nil {
		return nil, err
	}

	habits := make([]models.Habit, 0, len(recs))
	for _, rec := range recs {
		h, err := models.HabitFromRecord(rec)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, nil
}

// CreateMonthlySlots expands every manageable habit over the calendar
// month of ref, persists all drafts and advances each habit's watermark
// to the month's end, all in one transaction. Idempotent per month: a
// second call inside the same month finds no manageable habits. Returns
// the number of slots created.
func (s *Service) CreateMonthlySlots(ref time.Time) (int, error) {
	windowStart := utils.StartOfMonth(ref)

	manageable, err := s.ManageableHabits(windowStart)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch manageable habits: %w", err)
	}
	if len(manageable) == 0 {
		return 0, nil
	}

	var drafts []repo.Record
	for _, h := range manageable {
		for _, slot := range CalculateSlots(h, ref) {
			drafts = append(drafts, slot.Values())
		}
	}

	db := s.store.DB()
	if db == nil {
		return 0, apperr.ErrNotReady
	}

	// Slots and watermarks commit together: a failed run leaves nothing
	// behind and the month stays due for a retry.
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created, err := s.slots.In(tx).CreateAll(drafts)
	if err != nil {
		return 0, fmt.Errorf("failed to store slots: %w", err)
	}

	watermark := models.EncodeTime(utils.EndOfMonth(ref))
	updates := make([]repo.Record, 0, len(manageable))
	for _, h := range manageable {
		updates = append(updates, repo.Record{"id": h.ID, "manage_from": watermark})
	}
	if _, err := s.habits.In(tx).UpdateAll(updates); err != nil {
		return 0, fmt.Errorf("failed to advance habit watermarks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit slot generation: %w", err)
	}

	logger.Info("Generated monthly slots", "habits", len(manageable), "slots", len(created))
	return len(created), nil
}

// SelectableHabits returns, per habit, the single slot eligible for a
// check-in at target: its period must cover both target and now, and it
// must not be full. Check-ins cannot be back- or forward-dated across
// days, so target and now must share a calendar day. Per habit the
// earliest-expiring eligible slot wins; habits without one are omitted.
func (s *Service) SelectableHabits(target, now time.Time) ([]SelectableHabit, error) {
	if !utils.SameDay(target, now) {
		return []SelectableHabit{}, nil
	}

	habitRecs, err := s.habits.Index(nil, nil)
	if err != nil {
		return nil, err
	}
	slotRecs, err := s.slots.Index(nil, &repo.Sort{Field: "active_to"})
	if err != nil {
		return nil, err
	}

	// Ascending active_to order is preserved within each habit's group.
	byHabit := make(map[string][]models.Slot)
	for _, rec := range slotRecs {
		slot, err := models.SlotFromRecord(rec)
		if err != nil {
			return nil, err
		}
		byHabit[slot.HabitID] = append(byHabit[slot.HabitID], slot)
	}

	selectable := []SelectableHabit{}
	for _, rec := range habitRecs {
		habit, err := models.HabitFromRecord(rec)
		if err != nil {
			return nil, err
		}
		for _, slot := range byHabit[habit.ID] {
			if slot.Full() {
				continue
			}
			if !periodCovers(slot, habit.Granularity, now) || !periodCovers(slot, habit.Granularity, target) {
				continue
			}
			selectable = append(selectable, SelectableHabit{Habit: habit, Slot: slot})
			break
		}
	}
	return selectable, nil
}

// SaveEvent records a check-in against a slot. The slot is re-fetched
// and re-validated at call time to guard the gap between selection and
// submission; the event row and the slot increment commit as one
// transaction. Returns the created event and the updated slot.
func (s *Service) SaveEvent(draft models.Event, slotID string, now time.Time) (models.Event, models.Slot, error) {
	if now.IsZero() {
		now = time.Now()
	}

	unlock := s.slotLocks.lock(slotID)
	defer unlock()

	db := s.store.DB()
	if db == nil {
		return models.Event{}, models.Slot{}, apperr.ErrNotReady
	}

	tx, err := db.Begin()
	if err != nil {
		return models.Event{}, models.Slot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	slotRec, err := s.slots.In(tx).Show(slotID)
	if apperr.IsNotFound(err) {
		return models.Event{}, models.Slot{}, apperr.ErrSlotUnavailable
	}
	if err != nil {
		return models.Event{}, models.Slot{}, err
	}
	slot, err := models.SlotFromRecord(slotRec)
	if err != nil {
		return models.Event{}, models.Slot{}, err
	}
	if slot.Expired(now) || slot.Full() {
		return models.Event{}, models.Slot{}, apperr.ErrSlotUnavailable
	}

	eventRec, err := s.events.In(tx).Create(draft.Values())
	if err != nil {
		return models.Event{}, models.Slot{}, fmt.Errorf("failed to store event: %w", err)
	}
	event, err := models.EventFromRecord(eventRec)
	if err != nil {
		return models.Event{}, models.Slot{}, err
	}

	updatedRec, err := s.slots.In(tx).Update(slotID, repo.Record{
		"event_ids":  models.EncodeEventIDs(append(slot.EventIDs, event.ID)),
		"completion": slot.Completion + 1,
	})
	if err != nil {
		return models.Event{}, models.Slot{}, fmt.Errorf("failed to update slot: %w", err)
	}
	updated, err := models.SlotFromRecord(updatedRec)
	if err != nil {
		return models.Event{}, models.Slot{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Event{}, models.Slot{}, fmt.Errorf("failed to commit check-in: %w", err)
	}
	return event, updated, nil
}

// ActiveSlots returns every slot still active at from, soonest-expiring
// first, for calendar/listing collaborators.
func (s *Service) ActiveSlots(from time.Time) ([]models.Slot, error) {
	cutoff := models.EncodeTime(from)
	recs, err := s.slots.Index(func(rec repo.Record) bool {
		activeTo, _ := rec["active_to"].(string)
		return activeTo >= cutoff
	}, &repo.Sort{Field: "active_to"})
	if err != nil {
		return nil, err
	}

	slots := make([]models.Slot, 0, len(recs))
	for _, rec := range recs {
		slot, err := models.SlotFromRecord(rec)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// EventsBetween returns the check-ins recorded in [from, to].
func (s *Service) EventsBetween(from, to time.Time) ([]models.Event, error) {
	lo, hi := models.EncodeTime(from), models.EncodeTime(to)
	recs, err := s.events.Index(func(rec repo.Record) bool {
		dt, _ := rec["datetime"].(string)
		return dt >= lo && dt <= hi
	}, &repo.Sort{Field: "datetime"})
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(recs))
	for _, rec := range recs {
		event, err := models.EventFromRecord(rec)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Setup runs the option-gated generation pass. If generation never ran
// and force is false it declines; if the persisted watermark is still
// ahead of now the pass is already satisfied for this month; otherwise
// it generates the month's slots and advances the watermark to the end
// of the current month. Safe to retry: generation is idempotent per
// calendar month.
func (s *Service) Setup(force bool, now time.Time) (SetupStatus, error) {
	if now.IsZero() {
		now = time.Now()
	}

	opt, err := s.store.GetOption(constants.OptionLastSetup)
	if err != nil {
		return SetupDeclined, err
	}

	if opt == nil || opt.Value == "" {
		if !force {
			return SetupDeclined, nil
		}
	} else {
		watermark, err := time.Parse(constants.TimestampFormat, opt.Value)
		if err != nil {
			return SetupDeclined, fmt.Errorf("failed to parse setup watermark: %w", err)
		}
		if watermark.After(now) {
			return SetupSatisfied, nil
		}
	}

	if _, err := s.CreateMonthlySlots(now); err != nil {
		logger.Error("Slot generation failed", "error", err)
		return SetupDeclined, err
	}

	if err := s.store.SetOption(constants.OptionLastSetup, models.EncodeTime(utils.EndOfMonth(now))); err != nil {
		return SetupDeclined, err
	}
	if err := s.store.SetOption(constants.OptionSetupCompleted, "true"); err != nil {
		return SetupDeclined, err
	}
	return SetupRan, nil
}

// keyedMutex serializes critical sections per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
