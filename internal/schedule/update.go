package schedule

import (
	"fmt"
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

// MatchPatch is a partial edit of one match. Nil fields are left alone.
type MatchPatch struct {
	FieldID *uuid.UUID `json:"fieldId,omitempty"`
	Start   *time.Time `json:"start,omitempty"`
	End     *time.Time `json:"end,omitempty"`

	RefereeID        *uuid.UUID `json:"refereeId,omitempty"`
	ClearReferee     bool       `json:"clearReferee,omitempty"`
	TeamRefereeID    *uuid.UUID `json:"teamRefereeId,omitempty"`
	ClearTeamReferee bool       `json:"clearTeamReferee,omitempty"`

	Team1ID *uuid.UUID `json:"team1Id,omitempty"`
	Team2ID *uuid.UUID `json:"team2Id,omitempty"`

	Locked           *bool `json:"locked,omitempty"`
	RefereeCheckedIn *bool `json:"refereeCheckedIn,omitempty"`
}

func (p MatchPatch) movesMatch() bool {
	return p.FieldID != nil || p.Start != nil || p.End != nil
}

func (p MatchPatch) changesTeams() bool {
	return p.Team1ID != nil || p.Team2ID != nil
}

func (p MatchPatch) changesReferees() bool {
	return p.RefereeID != nil || p.ClearReferee || p.TeamRefereeID != nil || p.ClearTeamReferee
}

// MatchUpdate is one entry of a bulk update.
type MatchUpdate struct {
	MatchID uuid.UUID `json:"matchId"`
	MatchPatch
}

type UpdateResult struct {
	Event *event.Event `json:"event"`
	Match event.Match  `json:"match"`
}

type BulkUpdateResult struct {
	Event   *event.Event  `json:"event"`
	Matches []event.Match `json:"matches"`
}

// UpdateMatch applies one patch, validated like a packer placement of that match.
func UpdateMatch(in *event.Event, matchID uuid.UUID, patch MatchPatch, opts Options) (*UpdateResult, error) {
	opts = opts.normalize()
	ev := in.Clone()
	m, err := applyPatch(ev, matchID, patch, opts)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Event: ev, Match: m.Clone()}, nil
}

// UpdateMatches applies patches in order to one working copy. The first failure
// rejects the whole batch.
func UpdateMatches(in *event.Event, updates []MatchUpdate, opts Options) (*BulkUpdateResult, error) {
	opts = opts.normalize()
	ev := in.Clone()

	var touched []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for i, u := range updates {
		if _, err := applyPatch(ev, u.MatchID, u.MatchPatch, opts); err != nil {
			return nil, fmt.Errorf("update %d of %d: %w", i+1, len(updates), err)
		}
		if !seen[u.MatchID] {
			seen[u.MatchID] = true
			touched = append(touched, u.MatchID)
		}
	}

	matches := make([]event.Match, 0, len(touched))
	for _, id := range touched {
		matches = append(matches, ev.Match(id).Clone())
	}
	return &BulkUpdateResult{Event: ev, Matches: matches}, nil
}

func applyPatch(ev *event.Event, matchID uuid.UUID, patch MatchPatch, opts Options) (*event.Match, error) {
	m := ev.Match(matchID)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if m.Status != event.MatchScheduled && (patch.movesMatch() || patch.changesTeams() || patch.changesReferees()) {
		return nil, fmt.Errorf("%w: %s", ErrMatchFinalized, matchID)
	}

	next := m.Clone()
	if patch.Team1ID != nil {
		next.Team1 = event.Resolved(*patch.Team1ID)
	}
	if patch.Team2ID != nil {
		next.Team2 = event.Resolved(*patch.Team2ID)
	}

	if patch.movesMatch() {
		if err := movePlacement(ev, &next, patch, opts); err != nil {
			return nil, err
		}
	}

	if patch.ClearReferee {
		next.RefereeID = nil
		next.RefereeCheckedIn = false
	} else if patch.RefereeID != nil {
		id := *patch.RefereeID
		next.RefereeID = &id
	}
	if patch.ClearTeamReferee {
		next.TeamRefereeID = nil
	} else if patch.TeamRefereeID != nil {
		id := *patch.TeamRefereeID
		next.TeamRefereeID = &id
	}

	if patch.Locked != nil {
		if *patch.Locked && !next.IsPlaced() {
			return nil, fmt.Errorf("%w: cannot lock match %s without a field and time", ErrInvalidPatch, matchID)
		}
		next.Locked = *patch.Locked
	}
	if patch.RefereeCheckedIn != nil {
		next.RefereeCheckedIn = *patch.RefereeCheckedIn
	}

	if patch.changesTeams() {
		if err := validateTeams(ev, &next); err != nil {
			return nil, err
		}
	}
	placementChanged := patch.movesMatch() || patch.changesTeams()
	if placementChanged && next.IsPlaced() {
		if err := validatePlacement(ev, &next, opts); err != nil {
			return nil, err
		}
	}
	if placementChanged || patch.RefereeID != nil {
		if err := validateReferee(ev, &next); err != nil {
			return nil, err
		}
	}
	if placementChanged || patch.TeamRefereeID != nil {
		if err := validateTeamReferee(ev, &next); err != nil {
			return nil, err
		}
	}

	*m = next
	return m, nil
}

func movePlacement(ev *event.Event, m *event.Match, patch MatchPatch, opts Options) error {
	fieldID := m.FieldID
	if patch.FieldID != nil {
		fieldID = patch.FieldID
	}
	start := m.Start
	if patch.Start != nil {
		start = patch.Start
	}
	if fieldID == nil || start == nil {
		return fmt.Errorf("%w: a placement needs both a field and a start", ErrInvalidPatch)
	}

	var end time.Time
	switch {
	case patch.End != nil:
		end = *patch.End
	case m.IsPlaced():
		end = start.Add(m.End.Sub(*m.Start))
	default:
		end = start.Add(matchDuration(ev, m, opts))
	}
	if !end.After(*start) {
		return fmt.Errorf("%w: match must end after it starts", ErrInvalidPatch)
	}

	f, s := *fieldID, *start
	m.FieldID = &f
	m.Start = &s
	m.End = &end
	return nil
}

func validateTeams(ev *event.Event, m *event.Match) error {
	ids := m.TeamIDs()
	for _, id := range ids {
		t := ev.Team(id)
		if t == nil {
			return fmt.Errorf("%w: unknown team %s", ErrInvalidPatch, id)
		}
		if t.DivisionID != m.DivisionID {
			return fmt.Errorf("%w: team %s is not in the match's division", ErrInvalidPatch, id)
		}
	}
	if len(ids) == 2 && ids[0] == ids[1] {
		return fmt.Errorf("%w: a team cannot play itself", ErrInvalidPatch)
	}
	return nil
}

// validatePlacement applies the packer's rules to a single placed match.
func validatePlacement(ev *event.Event, m *event.Match, opts Options) error {
	f := ev.Field(*m.FieldID)
	if f == nil {
		return fmt.Errorf("%w: unknown field %s", ErrInvalidPatch, *m.FieldID)
	}
	div := ev.Division(m.DivisionID)
	if div == nil || !f.AcceptsDivision(div) {
		return &ConflictError{MatchID: m.ID, Reason: "field is not eligible for the match's division"}
	}
	if outsideEventWindow(ev, m) {
		return &ConflictError{MatchID: m.ID, Reason: "placement is outside the event window"}
	}

	from, to := searchRange(ev, opts)
	if !coveredByWindow(expandWindows(ev, from, to), m) {
		return &ConflictError{MatchID: m.ID, Reason: "placement is outside the field's available time slots"}
	}

	for i := range ev.Matches {
		o := &ev.Matches[i]
		if o.ID == m.ID || !o.IsPlaced() || o.IsCancelled() {
			continue
		}
		if *o.FieldID == *m.FieldID && fieldOverlap(m, o) {
			return &ConflictError{MatchID: m.ID, OtherMatchID: o.ID, Reason: "field is already in use"}
		}
		for _, t := range m.TeamIDs() {
			if o.HasTeam(t) && fieldOverlap(m, o) {
				return &ConflictError{MatchID: m.ID, OtherMatchID: o.ID, Reason: fmt.Sprintf("team %s is already playing", t)}
			}
		}
	}
	return nil
}

func validateReferee(ev *event.Event, m *event.Match) error {
	if m.RefereeID == nil {
		return nil
	}
	r := ev.Referee(*m.RefereeID)
	if r == nil {
		return fmt.Errorf("%w: unknown referee %s", ErrInvalidPatch, *m.RefereeID)
	}
	if !r.DivisionIDs.Allows(m.DivisionID) {
		return &ConflictError{MatchID: m.ID, Reason: "referee may not officiate this division"}
	}
	for i := range ev.Matches {
		o := &ev.Matches[i]
		if o.ID == m.ID || o.RefereeID == nil || *o.RefereeID != r.ID {
			continue
		}
		if playingOverlap(m, o) {
			return &ConflictError{MatchID: m.ID, OtherMatchID: o.ID, Reason: "referee is already booked"}
		}
	}
	return nil
}

func validateTeamReferee(ev *event.Event, m *event.Match) error {
	if m.TeamRefereeID == nil {
		return nil
	}
	id := *m.TeamRefereeID
	if ev.Team(id) == nil {
		return fmt.Errorf("%w: unknown team %s", ErrInvalidPatch, id)
	}
	if m.HasTeam(id) {
		return fmt.Errorf("%w: a team cannot referee its own match", ErrInvalidPatch)
	}
	for i := range ev.Matches {
		o := &ev.Matches[i]
		if o.ID == m.ID {
			continue
		}
		involved := o.HasTeam(id) || (o.TeamRefereeID != nil && *o.TeamRefereeID == id)
		if involved && playingOverlap(m, o) {
			return &ConflictError{MatchID: m.ID, OtherMatchID: o.ID, Reason: "referee team is already busy"}
		}
	}
	return nil
}
