package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/AdamBeresnev/matchday/internal/notify"
	"github.com/AdamBeresnev/matchday/internal/schedule"
	"github.com/AdamBeresnev/matchday/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Publisher interface {
	Publish(eventID uuid.UUID, msg notify.Message)
}

// ScheduleService loads an event, runs the engine on it and persists the outcome
// in one transaction. Changes are published once committed.
type ScheduleService struct {
	db        *sqlx.DB
	store     *store.EventStore
	publisher Publisher
	opts      schedule.Options
	logger    *slog.Logger
	locks     *eventLocks
}

func NewScheduleService(db *sqlx.DB, store *store.EventStore, publisher Publisher, opts schedule.Options, logger *slog.Logger) *ScheduleService {
	return &ScheduleService{
		db:        db,
		store:     store,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		locks:     newEventLocks(),
	}
}

func (s *ScheduleService) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return ev, err
}

func (s *ScheduleService) ListEvents(ctx context.Context, hostID uuid.UUID) ([]event.Event, error) {
	return s.store.ListEventsByHost(ctx, hostID)
}

// CreateEvent stores a new event for hostID. Missing ids are generated, the event
// has no matches until it is scheduled.
func (s *ScheduleService) CreateEvent(ctx context.Context, hostID uuid.UUID, ev *event.Event) (*event.Event, error) {
	ev = ev.Clone()
	ev.ID = uuid.New()
	ev.HostID = hostID
	ev.Matches = nil
	if err := prepareEvent(ev); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.store.CreateEvent(ctx, tx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("event created", "event_id", ev.ID, "host_id", hostID, "type", ev.Type,
		"divisions", len(ev.Divisions), "teams", len(ev.Teams))
	return s.GetEvent(ctx, ev.ID)
}

// UpdateEvent replaces the configuration and resources of an event. Matches are
// kept as they are, a reschedule picks up the change.
func (s *ScheduleService) UpdateEvent(ctx context.Context, hostID, id uuid.UUID, in *event.Event) (*event.Event, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	current, err := s.loadOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}

	ev := in.Clone()
	ev.ID = current.ID
	ev.HostID = current.HostID
	ev.CreatedAt = current.CreatedAt
	ev.Matches = current.Matches
	if err := prepareEvent(ev); err != nil {
		return nil, err
	}
	// Records belong to the played matches, not to the submitted payload
	for i := range ev.Teams {
		if prev := current.Team(ev.Teams[i].ID); prev != nil {
			ev.Teams[i].Wins, ev.Teams[i].Losses = prev.Wins, prev.Losses
		} else {
			ev.Teams[i].Wins, ev.Teams[i].Losses = 0, 0
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.store.UpdateEvent(ctx, tx, ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := s.store.ReplaceResources(ctx, tx, ev); err != nil {
		return nil, fmt.Errorf("replace resources: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("event updated", "event_id", id)
	return ev, nil
}

// ScheduleEvent builds and packs the whole event from scratch.
func (s *ScheduleService) ScheduleEvent(ctx context.Context, hostID, id uuid.UUID) (*schedule.ScheduleResult, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	ev, err := s.loadOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}

	res, err := schedule.Schedule(ev, s.opts)
	if err != nil {
		s.logger.Warn("schedule failed", "event_id", id, "error", err)
		return nil, fmt.Errorf("schedule event %s: %w", id, err)
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.ReplaceMatches(ctx, tx, id, res.Matches); err != nil {
			return err
		}
		if err := s.store.UpdateTeamRecords(ctx, tx, res.Event.Teams); err != nil {
			return err
		}
		return s.store.UpdateEventWindow(ctx, tx, res.Event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("event scheduled", "event_id", id, "matches", len(res.Matches), "end", res.Event.End)
	s.publisher.Publish(id, notify.Message{Type: notify.ScheduleUpdated, Payload: res.Matches})
	return res, nil
}

// RescheduleEvent repacks the event around its locked and finalized matches.
func (s *ScheduleService) RescheduleEvent(ctx context.Context, hostID, id uuid.UUID) (*schedule.RescheduleResult, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	ev, err := s.loadOwned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}

	res, err := schedule.Reschedule(ev, s.opts)
	if err != nil {
		s.logger.Warn("reschedule failed", "event_id", id, "error", err)
		return nil, fmt.Errorf("reschedule event %s: %w", id, err)
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.store.ReplaceMatches(ctx, tx, id, res.Matches); err != nil {
			return err
		}
		if err := s.store.UpdateTeamRecords(ctx, tx, res.Event.Teams); err != nil {
			return err
		}
		return s.store.UpdateEventWindow(ctx, tx, res.Event)
	})
	if err != nil {
		return nil, err
	}

	for _, w := range res.Warnings {
		s.logger.Warn("reschedule warning", "event_id", id, "code", w.Code, "matches", len(w.MatchIDs))
	}
	s.logger.Info("event rescheduled", "event_id", id, "matches", len(res.Matches), "warnings", len(res.Warnings))
	s.publisher.Publish(id, notify.Message{Type: notify.ScheduleUpdated, Payload: res})
	return res, nil
}

func (s *ScheduleService) UpdateMatch(ctx context.Context, hostID, eventID, matchID uuid.UUID, patch schedule.MatchPatch) (*schedule.UpdateResult, error) {
	unlock := s.locks.lock(eventID)
	defer unlock()

	ev, err := s.loadOwned(ctx, hostID, eventID)
	if err != nil {
		return nil, err
	}

	res, err := schedule.UpdateMatch(ev, matchID, patch, s.opts)
	if err != nil {
		return nil, fmt.Errorf("update match %s: %w", matchID, err)
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.store.SaveMatches(ctx, tx, []event.Match{res.Match})
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(eventID, notify.Message{Type: notify.MatchesUpdated, Payload: []event.Match{res.Match}})
	return res, nil
}

// UpdateMatches applies every update or none of them.
func (s *ScheduleService) UpdateMatches(ctx context.Context, hostID, eventID uuid.UUID, updates []schedule.MatchUpdate) (*schedule.BulkUpdateResult, error) {
	unlock := s.locks.lock(eventID)
	defer unlock()

	ev, err := s.loadOwned(ctx, hostID, eventID)
	if err != nil {
		return nil, err
	}

	res, err := schedule.UpdateMatches(ev, updates, s.opts)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.store.SaveMatches(ctx, tx, res.Matches)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("matches updated", "event_id", eventID, "matches", len(res.Matches))
	s.publisher.Publish(eventID, notify.Message{Type: notify.MatchesUpdated, Payload: res.Matches})
	return res, nil
}

// FinalizeMatch records a result and places whatever it unblocked. When that
// placement runs past the event end the result is still committed and returned,
// the error then wraps both ErrAutoRescheduleEndLimit and the engine error, and
// the host is alerted.
func (s *ScheduleService) FinalizeMatch(ctx context.Context, hostID, eventID, matchID uuid.UUID, result schedule.Result) (*schedule.FinalizeResult, error) {
	unlock := s.locks.lock(eventID)
	defer unlock()

	ev, err := s.loadOwned(ctx, hostID, eventID)
	if err != nil {
		return nil, err
	}

	res, engineErr := schedule.FinalizeMatch(ev, matchID, result, s.opts)
	if res == nil {
		return nil, fmt.Errorf("finalize match %s: %w", matchID, engineErr)
	}
	if engineErr != nil && !errors.Is(engineErr, schedule.ErrScheduleWindowExceeded) {
		return nil, fmt.Errorf("finalize match %s: %w", matchID, engineErr)
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		changed := append([]event.Match{res.Match}, res.Affected...)
		if err := s.store.SaveMatches(ctx, tx, changed); err != nil {
			return err
		}
		if err := s.store.UpdateTeamRecords(ctx, tx, res.Event.Teams); err != nil {
			return err
		}
		return s.store.UpdateEventWindow(ctx, tx, res.Event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match finalized", "event_id", eventID, "match_id", matchID, "affected", len(res.Affected))
	s.publisher.Publish(eventID, notify.Message{Type: notify.MatchFinalized, Payload: res})

	if engineErr != nil {
		alert := notify.Alert{Code: "AUTO_RESCHEDULE_END_LIMIT", Message: engineErr.Error()}
		var windowErr *schedule.WindowExceededError
		if errors.As(engineErr, &windowErr) {
			alert.MatchID = &windowErr.MatchID
		}
		s.logger.Warn("auto reschedule hit the event end", "event_id", eventID, "match_id", matchID, "error", engineErr)
		s.publisher.Publish(eventID, notify.Message{Type: notify.HostAlert, Payload: alert})
		return res, fmt.Errorf("%w: %w", ErrAutoRescheduleEndLimit, engineErr)
	}
	return res, nil
}

func (s *ScheduleService) loadOwned(ctx context.Context, hostID, id uuid.UUID) (*event.Event, error) {
	ev, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.HostID != hostID {
		return nil, fmt.Errorf("%w: event %s", ErrForbidden, id)
	}
	return ev, nil
}

func (s *ScheduleService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// prepareEvent fills in generated ids and checks the references the engine and
// the schema rely on.
func prepareEvent(ev *event.Event) error {
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEvent)
	}
	switch ev.Type {
	case event.TournamentType, event.LeagueType:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, ev.Type)
	}
	if ev.Start.IsZero() {
		return fmt.Errorf("%w: start is required", ErrInvalidEvent)
	}
	if !ev.NoFixedEndDateTime && !ev.End.After(ev.Start) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidEvent)
	}
	if ev.IsLeague() && ev.GamesPerOpponent == 0 {
		ev.GamesPerOpponent = 1
	}

	for i := range ev.Divisions {
		fillID(&ev.Divisions[i].ID)
	}
	for i := range ev.Fields {
		f := &ev.Fields[i]
		fillID(&f.ID)
		if f.FieldNumber == 0 {
			f.FieldNumber = i + 1
		}
		for j := range f.RentalSlots {
			fillID(&f.RentalSlots[j].ID)
		}
	}
	for i := range ev.TimeSlots {
		fillID(&ev.TimeSlots[i].ID)
		if fid := ev.TimeSlots[i].FieldID; fid != uuid.Nil && ev.Field(fid) == nil {
			return fmt.Errorf("%w: time slot references unknown field %s", ErrInvalidEvent, fid)
		}
	}
	var cfgErr *schedule.ConfigError
	if err := schedule.ValidateSlots(ev); errors.As(err, &cfgErr) {
		return fmt.Errorf("%w: %s", ErrInvalidEvent, cfgErr.Reason)
	}
	for i := range ev.Referees {
		fillID(&ev.Referees[i].ID)
	}

	seen := make(map[uuid.UUID]bool)
	for i := range ev.Teams {
		t := &ev.Teams[i]
		fillID(&t.ID)
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate team %s", ErrInvalidEvent, t.ID)
		}
		seen[t.ID] = true
		if t.DivisionID == uuid.Nil && len(ev.Divisions) == 1 {
			t.DivisionID = ev.Divisions[0].ID
		}
		if ev.Division(t.DivisionID) == nil {
			return fmt.Errorf("%w: team %q references unknown division", ErrInvalidEvent, t.Name)
		}
		if t.Seed == 0 {
			t.Seed = i + 1
		}
	}
	return nil
}

func fillID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
