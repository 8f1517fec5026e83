package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

const (
	eventColumns = `id, host_id, name, event_type, start_at, end_at, no_fixed_end, double_elimination,
		winner_set_count, loser_set_count, uses_sets, sets_per_match, set_duration_minutes,
		match_duration_minutes, rest_time_minutes, games_per_opponent, include_playoffs,
		playoff_team_count, do_teams_ref, defer_unresolved_matches, registration_cutoff_hours`

	createEventQuery = `INSERT INTO events (` + eventColumns + `) VALUES
		(:id, :host_id, :name, :event_type, :start_at, :end_at, :no_fixed_end, :double_elimination,
		:winner_set_count, :loser_set_count, :uses_sets, :sets_per_match, :set_duration_minutes,
		:match_duration_minutes, :rest_time_minutes, :games_per_opponent, :include_playoffs,
		:playoff_team_count, :do_teams_ref, :defer_unresolved_matches, :registration_cutoff_hours)`

	updateEventQuery = `UPDATE events SET
		name = :name, event_type = :event_type, start_at = :start_at, end_at = :end_at,
		no_fixed_end = :no_fixed_end, double_elimination = :double_elimination,
		winner_set_count = :winner_set_count, loser_set_count = :loser_set_count,
		uses_sets = :uses_sets, sets_per_match = :sets_per_match,
		set_duration_minutes = :set_duration_minutes, match_duration_minutes = :match_duration_minutes,
		rest_time_minutes = :rest_time_minutes, games_per_opponent = :games_per_opponent,
		include_playoffs = :include_playoffs, playoff_team_count = :playoff_team_count,
		do_teams_ref = :do_teams_ref, defer_unresolved_matches = :defer_unresolved_matches,
		registration_cutoff_hours = :registration_cutoff_hours
		WHERE id = :id`

	createDivisionQuery = `INSERT INTO divisions (id, event_id, name, field_ids, position)
		VALUES (:id, :event_id, :name, :field_ids, :position)`
	createFieldQuery = `INSERT INTO fields (id, event_id, field_number, name, division_ids)
		VALUES (:id, :event_id, :field_number, :name, :division_ids)`
	createTimeSlotQuery = `INSERT INTO time_slots (id, event_id, field_id, rental, day_of_week, start_date,
		end_date, repeating, start_time_minutes, end_time_minutes, price, division_ids)
		VALUES (:id, :event_id, :field_id, :rental, :day_of_week, :start_date, :end_date, :repeating,
		:start_time_minutes, :end_time_minutes, :price, :division_ids)`
	createTeamQuery = `INSERT INTO teams (id, event_id, division_id, name, seed, captain_id, player_ids, wins, losses)
		VALUES (:id, :event_id, :division_id, :name, :seed, :captain_id, :player_ids, :wins, :losses)`
	createRefereeQuery = `INSERT INTO referees (id, event_id, name, division_ids, position)
		VALUES (:id, :event_id, :name, :division_ids, :position)`

	matchColumns = `id, event_id, division_id, bracket_side, round_number, match_order,
		team1_state, team1_id, team1_source_match_id, team1_source_outcome,
		team2_state, team2_id, team2_source_match_id, team2_source_outcome,
		team_referee_id, referee_id, field_id, start_at, end_at, buffer_ms, side, losers_bracket,
		previous_left_match_id, previous_right_match_id, winner_next_match_id, loser_next_match_id,
		team1_points, team2_points, set_results, locked, referee_checked_in, status`

	createMatchQuery = `INSERT INTO matches (` + matchColumns + `) VALUES
		(:id, :event_id, :division_id, :bracket_side, :round_number, :match_order,
		:team1_state, :team1_id, :team1_source_match_id, :team1_source_outcome,
		:team2_state, :team2_id, :team2_source_match_id, :team2_source_outcome,
		:team_referee_id, :referee_id, :field_id, :start_at, :end_at, :buffer_ms, :side, :losers_bracket,
		:previous_left_match_id, :previous_right_match_id, :winner_next_match_id, :loser_next_match_id,
		:team1_points, :team2_points, :set_results, :locked, :referee_checked_in, :status)`

	// Upsert keeps the rowid so load order stays the build order
	saveMatchQuery = createMatchQuery + ` ON CONFLICT (id) DO UPDATE SET
		team1_state = excluded.team1_state, team1_id = excluded.team1_id,
		team1_source_match_id = excluded.team1_source_match_id, team1_source_outcome = excluded.team1_source_outcome,
		team2_state = excluded.team2_state, team2_id = excluded.team2_id,
		team2_source_match_id = excluded.team2_source_match_id, team2_source_outcome = excluded.team2_source_outcome,
		team_referee_id = excluded.team_referee_id, referee_id = excluded.referee_id,
		field_id = excluded.field_id, start_at = excluded.start_at, end_at = excluded.end_at,
		buffer_ms = excluded.buffer_ms, team1_points = excluded.team1_points,
		team2_points = excluded.team2_points, set_results = excluded.set_results,
		locked = excluded.locked, referee_checked_in = excluded.referee_checked_in, status = excluded.status`
)

// matchRow is the flattened matches table row.
type matchRow struct {
	ID          uuid.UUID `db:"id"`
	EventID     uuid.UUID `db:"event_id"`
	DivisionID  uuid.UUID `db:"division_id"`
	BracketSide string    `db:"bracket_side"`
	RoundNumber int       `db:"round_number"`
	MatchOrder  int       `db:"match_order"`

	Team1State         string     `db:"team1_state"`
	Team1ID            *uuid.UUID `db:"team1_id"`
	Team1SourceMatchID *uuid.UUID `db:"team1_source_match_id"`
	Team1SourceOutcome *string    `db:"team1_source_outcome"`
	Team2State         string     `db:"team2_state"`
	Team2ID            *uuid.UUID `db:"team2_id"`
	Team2SourceMatchID *uuid.UUID `db:"team2_source_match_id"`
	Team2SourceOutcome *string    `db:"team2_source_outcome"`

	TeamRefereeID *uuid.UUID `db:"team_referee_id"`
	RefereeID     *uuid.UUID `db:"referee_id"`
	FieldID       *uuid.UUID `db:"field_id"`
	Start         *time.Time `db:"start_at"`
	End           *time.Time `db:"end_at"`
	BufferMs      int64      `db:"buffer_ms"`
	Side          string     `db:"side"`
	LosersBracket bool       `db:"losers_bracket"`

	PreviousLeftMatchID  *uuid.UUID `db:"previous_left_match_id"`
	PreviousRightMatchID *uuid.UUID `db:"previous_right_match_id"`
	WinnerNextMatchID    *uuid.UUID `db:"winner_next_match_id"`
	LoserNextMatchID     *uuid.UUID `db:"loser_next_match_id"`

	Team1Points      int    `db:"team1_points"`
	Team2Points      int    `db:"team2_points"`
	SetResults       string `db:"set_results"`
	Locked           bool   `db:"locked"`
	RefereeCheckedIn bool   `db:"referee_checked_in"`
	Status           string `db:"status"`
}

func slotColumns(s event.TeamSlot) (state string, teamID, sourceID *uuid.UUID, outcome *string) {
	state = s.State.String()
	if id, ok := s.TeamID(); ok {
		teamID = &id
	}
	if s.State == event.SlotPending {
		src := s.SourceMatchID
		o := string(s.SourceOutcome)
		sourceID, outcome = &src, &o
	}
	return state, teamID, sourceID, outcome
}

func slotFromColumns(state string, teamID, sourceID *uuid.UUID, outcome *string) (event.TeamSlot, error) {
	var s event.TeamSlot
	if err := s.State.UnmarshalText([]byte(state)); err != nil {
		return s, err
	}
	if teamID != nil {
		s.Team = *teamID
	}
	if sourceID != nil {
		s.SourceMatchID = *sourceID
	}
	if outcome != nil {
		s.SourceOutcome = event.Outcome(*outcome)
	}
	return s, nil
}

func toMatchRow(m event.Match) (matchRow, error) {
	results := m.SetResults
	if results == nil {
		results = []event.SetResult{}
	}
	raw, err := json.Marshal(results)
	if err != nil {
		return matchRow{}, err
	}

	row := matchRow{
		ID:                   m.ID,
		EventID:              m.EventID,
		DivisionID:           m.DivisionID,
		BracketSide:          string(m.BracketSide),
		RoundNumber:          m.RoundNumber,
		MatchOrder:           m.MatchOrder,
		TeamRefereeID:        m.TeamRefereeID,
		RefereeID:            m.RefereeID,
		FieldID:              m.FieldID,
		Start:                m.Start,
		End:                  m.End,
		BufferMs:             m.BufferMs,
		Side:                 string(m.Side),
		LosersBracket:        m.LosersBracket,
		PreviousLeftMatchID:  m.PreviousLeftMatchID,
		PreviousRightMatchID: m.PreviousRightMatchID,
		WinnerNextMatchID:    m.WinnerNextMatchID,
		LoserNextMatchID:     m.LoserNextMatchID,
		Team1Points:          m.Team1Points,
		Team2Points:          m.Team2Points,
		SetResults:           string(raw),
		Locked:               m.Locked,
		RefereeCheckedIn:     m.RefereeCheckedIn,
		Status:               string(m.Status),
	}
	row.Team1State, row.Team1ID, row.Team1SourceMatchID, row.Team1SourceOutcome = slotColumns(m.Team1)
	row.Team2State, row.Team2ID, row.Team2SourceMatchID, row.Team2SourceOutcome = slotColumns(m.Team2)
	return row, nil
}

func (r matchRow) toMatch() (event.Match, error) {
	m := event.Match{
		ID:                   r.ID,
		EventID:              r.EventID,
		DivisionID:           r.DivisionID,
		BracketSide:          event.BracketSide(r.BracketSide),
		RoundNumber:          r.RoundNumber,
		MatchOrder:           r.MatchOrder,
		TeamRefereeID:        r.TeamRefereeID,
		RefereeID:            r.RefereeID,
		FieldID:              r.FieldID,
		Start:                r.Start,
		End:                  r.End,
		BufferMs:             r.BufferMs,
		Side:                 event.Side(r.Side),
		LosersBracket:        r.LosersBracket,
		PreviousLeftMatchID:  r.PreviousLeftMatchID,
		PreviousRightMatchID: r.PreviousRightMatchID,
		WinnerNextMatchID:    r.WinnerNextMatchID,
		LoserNextMatchID:     r.LoserNextMatchID,
		Team1Points:          r.Team1Points,
		Team2Points:          r.Team2Points,
		Locked:               r.Locked,
		RefereeCheckedIn:     r.RefereeCheckedIn,
		Status:               event.MatchStatus(r.Status),
	}

	var err error
	if m.Team1, err = slotFromColumns(r.Team1State, r.Team1ID, r.Team1SourceMatchID, r.Team1SourceOutcome); err != nil {
		return m, fmt.Errorf("match %s team1: %w", r.ID, err)
	}
	if m.Team2, err = slotFromColumns(r.Team2State, r.Team2ID, r.Team2SourceMatchID, r.Team2SourceOutcome); err != nil {
		return m, fmt.Errorf("match %s team2: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.SetResults), &m.SetResults); err != nil {
		return m, fmt.Errorf("match %s set results: %w", r.ID, err)
	}
	if len(m.SetResults) == 0 {
		m.SetResults = nil
	}
	return m, nil
}

// CreateEvent inserts the event row and every resource hanging off it.
func (s *EventStore) CreateEvent(ctx context.Context, tx *sqlx.Tx, ev *event.Event) error {
	if _, err := tx.NamedExecContext(ctx, createEventQuery, ev); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return s.insertResources(ctx, tx, ev)
}

// UpdateEvent overwrites the event's configuration columns.
func (s *EventStore) UpdateEvent(ctx context.Context, tx *sqlx.Tx, ev *event.Event) error {
	_, err := tx.NamedExecContext(ctx, updateEventQuery, ev)
	return err
}

// ReplaceResources drops the event's divisions, fields, slots, teams and referees
// and inserts the ones on ev.
func (s *EventStore) ReplaceResources(ctx context.Context, tx *sqlx.Tx, ev *event.Event) error {
	for _, table := range []string{"teams", "referees", "time_slots", "fields", "divisions"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE event_id = ?", ev.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return s.insertResources(ctx, tx, ev)
}

func (s *EventStore) insertResources(ctx context.Context, tx *sqlx.Tx, ev *event.Event) error {
	divisions := make([]event.Division, len(ev.Divisions))
	for i, d := range ev.Divisions {
		d.EventID = ev.ID
		d.Position = i
		divisions[i] = d
	}
	if err := execEach(ctx, tx, createDivisionQuery, divisions); err != nil {
		return fmt.Errorf("insert divisions: %w", err)
	}

	var slots []event.TimeSlot
	fields := make([]event.Field, len(ev.Fields))
	for i, f := range ev.Fields {
		f.EventID = ev.ID
		fields[i] = f
		for _, rs := range f.RentalSlots {
			rs.EventID = ev.ID
			rs.FieldID = f.ID
			rs.Rental = true
			slots = append(slots, rs)
		}
	}
	if err := execEach(ctx, tx, createFieldQuery, fields); err != nil {
		return fmt.Errorf("insert fields: %w", err)
	}

	for _, ts := range ev.TimeSlots {
		ts.EventID = ev.ID
		ts.Rental = false
		slots = append(slots, ts)
	}
	if err := execEach(ctx, tx, createTimeSlotQuery, slots); err != nil {
		return fmt.Errorf("insert time slots: %w", err)
	}

	teams := make([]event.Team, len(ev.Teams))
	for i, t := range ev.Teams {
		t.EventID = ev.ID
		teams[i] = t
	}
	if err := execEach(ctx, tx, createTeamQuery, teams); err != nil {
		return fmt.Errorf("insert teams: %w", err)
	}

	referees := make([]event.Referee, len(ev.Referees))
	for i, r := range ev.Referees {
		r.EventID = ev.ID
		r.Position = i
		referees[i] = r
	}
	if err := execEach(ctx, tx, createRefereeQuery, referees); err != nil {
		return fmt.Errorf("insert referees: %w", err)
	}
	return nil
}

// execEach runs a named statement once per row. SQLite caps bound parameters, so
// large batches are not folded into one multi-row insert.
func execEach[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceMatches deletes every match of the event and inserts matches in order.
func (s *EventStore) ReplaceMatches(ctx context.Context, tx *sqlx.Tx, eventID uuid.UUID, matches []event.Match) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE event_id = ?", eventID); err != nil {
		return fmt.Errorf("clear matches: %w", err)
	}
	return s.writeMatches(ctx, tx, createMatchQuery, matches)
}

// SaveMatches inserts new matches and updates the mutable columns of existing ones.
func (s *EventStore) SaveMatches(ctx context.Context, tx *sqlx.Tx, matches []event.Match) error {
	return s.writeMatches(ctx, tx, saveMatchQuery, matches)
}

func (s *EventStore) writeMatches(ctx context.Context, tx *sqlx.Tx, query string, matches []event.Match) error {
	rows := make([]matchRow, len(matches))
	for i, m := range matches {
		row, err := toMatchRow(m)
		if err != nil {
			return fmt.Errorf("match %s: %w", m.ID, err)
		}
		rows[i] = row
	}
	if err := execEach(ctx, tx, query, rows); err != nil {
		return fmt.Errorf("write matches: %w", err)
	}
	return nil
}

// UpdateEventWindow persists the start and end of the event, which open ended
// scheduling may have moved.
func (s *EventStore) UpdateEventWindow(ctx context.Context, tx *sqlx.Tx, ev *event.Event) error {
	_, err := tx.ExecContext(ctx, "UPDATE events SET start_at = ?, end_at = ? WHERE id = ?", ev.Start, ev.End, ev.ID)
	return err
}

func (s *EventStore) UpdateTeamRecords(ctx context.Context, tx *sqlx.Tx, teams []event.Team) error {
	if len(teams) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, "UPDATE teams SET wins = :wins, losses = :losses WHERE id = :id")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range teams {
		if _, err := stmt.ExecContext(ctx, t); err != nil {
			return fmt.Errorf("team %s: %w", t.ID, err)
		}
	}
	return nil
}

// GetEvent loads an event with all of its resources and matches. A missing event
// returns an error wrapping sql.ErrNoRows.
func (s *EventStore) GetEvent(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	var ev event.Event
	if err := s.db.GetContext(ctx, &ev, "SELECT "+eventColumns+", created_at FROM events WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("event %s: %w", id, err)
	}

	var (
		slots []event.TimeSlot
		rows  []matchRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.SelectContext(gctx, &ev.Divisions, "SELECT * FROM divisions WHERE event_id = ? ORDER BY position", id)
	})
	g.Go(func() error {
		return s.db.SelectContext(gctx, &ev.Fields, "SELECT * FROM fields WHERE event_id = ? ORDER BY field_number, id", id)
	})
	g.Go(func() error {
		return s.db.SelectContext(gctx, &slots, "SELECT * FROM time_slots WHERE event_id = ? ORDER BY rowid", id)
	})
	g.Go(func() error {
		return s.db.SelectContext(gctx, &ev.Teams, "SELECT * FROM teams WHERE event_id = ? ORDER BY rowid", id)
	})
	g.Go(func() error {
		return s.db.SelectContext(gctx, &ev.Referees, "SELECT * FROM referees WHERE event_id = ? ORDER BY position", id)
	})
	g.Go(func() error {
		return s.db.SelectContext(gctx, &rows, "SELECT "+matchColumns+" FROM matches WHERE event_id = ? ORDER BY rowid", id)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load event %s: %w", id, err)
	}

	for _, ts := range slots {
		if !ts.Rental {
			ev.TimeSlots = append(ev.TimeSlots, ts)
			continue
		}
		if f := ev.Field(ts.FieldID); f != nil {
			f.RentalSlots = append(f.RentalSlots, ts)
		}
	}

	for _, r := range rows {
		m, err := r.toMatch()
		if err != nil {
			return nil, err
		}
		ev.Matches = append(ev.Matches, m)
	}
	return &ev, nil
}

// ListEventsByHost returns the host's events without their resources, newest first.
func (s *EventStore) ListEventsByHost(ctx context.Context, hostID uuid.UUID) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		"SELECT "+eventColumns+", created_at FROM events WHERE host_id = ? ORDER BY created_at DESC, rowid DESC", hostID)
	return events, err
}
