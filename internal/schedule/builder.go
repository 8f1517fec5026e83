package schedule

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/google/uuid"
)

// Build produces the regular matches of every division, unplaced, with progression
// wired. League playoffs are not included, see BuildPlayoffs.
func Build(ev *event.Event, opts Options) ([]event.Match, error) {
	if err := validateEvent(ev); err != nil {
		return nil, err
	}
	b := newBuilder(ev, opts.normalize())
	for _, d := range ev.Divisions {
		teams := ev.DivisionTeams(d.ID)
		switch {
		case ev.IsLeague():
			b.roundRobin(d.ID, teams)
		case ev.DoubleElimination:
			b.doubleElimination(d.ID, teams)
		default:
			b.elimination(d.ID, event.WinnersSide, teams)
		}
	}
	return b.matches, nil
}

type builder struct {
	ev      *event.Event
	opts    Options
	matches []event.Match
	idx     map[uuid.UUID]int
}

func newBuilder(ev *event.Event, opts Options) *builder {
	return &builder{ev: ev, opts: opts, idx: make(map[uuid.UUID]int)}
}

// node is one position of a bracket round: a known team, the outcome of an
// earlier match, or nothing at all when a bye emptied it.
type node struct {
	slot  event.TeamSlot
	empty bool
}

var emptyNode = node{empty: true}

// matchID is derived from the match's position so rebuilding an unchanged draw
// hands out the same ids.
func matchID(ev *event.Event, divisionID uuid.UUID, side event.BracketSide, round, order int) uuid.UUID {
	return uuid.NewSHA1(ev.ID, fmt.Appendf(nil, "%s/%s/%d/%d", divisionID, side, round, order))
}

func (b *builder) add(divisionID uuid.UUID, side event.BracketSide, round, order int, pos event.Side) uuid.UUID {
	m := event.Match{
		ID:            matchID(b.ev, divisionID, side, round, order),
		EventID:       b.ev.ID,
		DivisionID:    divisionID,
		BracketSide:   side,
		RoundNumber:   round,
		MatchOrder:    order,
		Side:          pos,
		LosersBracket: side == event.LosersSide,
		Status:        event.MatchScheduled,
	}
	m.BufferMs = bufferFor(b.ev, &m, b.opts).Milliseconds()
	b.idx[m.ID] = len(b.matches)
	b.matches = append(b.matches, m)
	return m.ID
}

func (b *builder) get(id uuid.UUID) *event.Match {
	return &b.matches[b.idx[id]]
}

// feed wires n into match to. left selects team1.
func (b *builder) feed(n node, to uuid.UUID, left bool) {
	dst := b.get(to)
	if left {
		dst.Team1 = n.slot
	} else {
		dst.Team2 = n.slot
	}
	if n.slot.State != event.SlotPending {
		return
	}

	src := b.get(n.slot.SourceMatchID)
	target := to
	if n.slot.SourceOutcome == event.OutcomeLoser {
		src.LoserNextMatchID = &target
	} else {
		src.WinnerNextMatchID = &target
	}
	srcID := src.ID
	if left {
		dst.PreviousLeftMatchID = &srcID
	} else {
		dst.PreviousRightMatchID = &srcID
	}
}

// pairRound pairs adjacent nodes into one round. Returns the winners and losers in
// bracket position order.
func (b *builder) pairRound(divisionID uuid.UUID, side event.BracketSide, round int, nodes []node) ([]node, []node) {
	count := len(nodes) / 2
	winners := make([]node, 0, count)
	losers := make([]node, 0, count)

	for i := 0; i < count; i++ {
		a, c := nodes[2*i], nodes[2*i+1]
		switch {
		case a.empty && c.empty:
			winners = append(winners, emptyNode)
			losers = append(losers, emptyNode)
		case c.empty:
			winners = append(winners, a)
			losers = append(losers, emptyNode)
		case a.empty:
			winners = append(winners, c)
			losers = append(losers, emptyNode)
		default:
			id := b.add(divisionID, side, round, i+1, sideFor(i, count))
			b.feed(a, id, true)
			b.feed(c, id, false)
			winners = append(winners, node{slot: event.Pending(id, event.OutcomeWinner)})
			losers = append(losers, node{slot: event.Pending(id, event.OutcomeLoser)})
		}
	}
	return winners, losers
}

func sideFor(pos, count int) event.Side {
	switch {
	case count <= 1:
		return event.SideNone
	case pos < count/2:
		return event.SideLeft
	default:
		return event.SideRight
	}
}

// elimination builds a single elimination bracket over teams in seed order and
// returns the champion node plus the losers of every round.
func (b *builder) elimination(divisionID uuid.UUID, side event.BracketSide, teams []event.Team) (node, [][]node) {
	size := calcBracketSize(len(teams))
	nodes := make([]node, 0, size)
	for _, pair := range generateRound1Pairs(size) {
		for _, seed := range pair {
			if seed < len(teams) {
				nodes = append(nodes, node{slot: event.Resolved(teams[seed].ID)})
			} else {
				nodes = append(nodes, emptyNode)
			}
		}
	}

	var roundLosers [][]node
	for round := 1; len(nodes) > 1; round++ {
		var losers []node
		nodes, losers = b.pairRound(divisionID, side, round, nodes)
		roundLosers = append(roundLosers, losers)
	}
	if len(nodes) == 0 {
		return emptyNode, roundLosers
	}
	return nodes[0], roundLosers
}

// doubleElimination adds a losers bracket, a grand final and a bracket reset match
// on top of the winners bracket.
func (b *builder) doubleElimination(divisionID uuid.UUID, teams []event.Team) {
	champion, wbLosers := b.elimination(divisionID, event.WinnersSide, teams)
	if len(wbLosers) == 0 {
		return
	}

	survivors := wbLosers[0]
	round := 1
	if len(survivors) > 1 {
		survivors, _ = b.pairRound(divisionID, event.LosersSide, round, survivors)
		round++
	}
	for j := 1; j < len(wbLosers); j++ {
		dropped := slices.Clone(wbLosers[j])
		// Alternate drop order so teams do not meet the opponent they just lost to
		if j%2 == 1 {
			slices.Reverse(dropped)
		}
		mixed := make([]node, 0, 2*len(survivors))
		for i := range survivors {
			mixed = append(mixed, survivors[i], dropped[i])
		}
		survivors, _ = b.pairRound(divisionID, event.LosersSide, round, mixed)
		round++

		if len(survivors) > 1 {
			survivors, _ = b.pairRound(divisionID, event.LosersSide, round, survivors)
			round++
		}
	}

	final := b.add(divisionID, event.FinalsSide, 1, 1, event.SideNone)
	b.feed(champion, final, true)
	b.feed(survivors[0], final, false)

	reset := b.add(divisionID, event.FinalsSide, 2, 1, event.SideNone)
	b.feed(node{slot: event.Pending(final, event.OutcomeWinner)}, reset, true)
	b.feed(node{slot: event.Pending(final, event.OutcomeLoser)}, reset, false)
}

// roundRobin uses the circle method: the first team stays put and the rest rotate
// one position per round. An odd field gets a bye placeholder.
func (b *builder) roundRobin(divisionID uuid.UUID, teams []event.Team) {
	circle := make([]*event.Team, len(teams), len(teams)+1)
	for i := range teams {
		circle[i] = &teams[i]
	}
	if len(circle)%2 == 1 {
		circle = append(circle, nil)
	}
	n := len(circle)
	cycles := max(b.ev.GamesPerOpponent, 1)

	for cycle := 0; cycle < cycles; cycle++ {
		rot := slices.Clone(circle)
		for r := 0; r < n-1; r++ {
			round := cycle*(n-1) + r + 1
			order := 0
			for i := 0; i < n/2; i++ {
				home, away := rot[i], rot[n-1-i]
				if home == nil || away == nil {
					continue
				}
				// Keep the fixed team from always being team1
				if i == 0 && r%2 == 1 {
					home, away = away, home
				}
				if cycle%2 == 1 {
					home, away = away, home
				}
				order++
				id := b.add(divisionID, event.LeagueSide, round, order, event.SideNone)
				m := b.get(id)
				m.Team1 = event.Resolved(home.ID)
				m.Team2 = event.Resolved(away.ID)
			}
			last := rot[n-1]
			copy(rot[2:], rot[1:n-1])
			rot[1] = last
		}
	}
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// generateRound1Pairs folds seeds so the best seed meets the worst: 0v7, 3v4, 1v6, 2v5.
func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize < 2 {
		return [][2]int{}
	}

	order := []int{0}
	for len(order) < bracketSize {
		next := make([]int, 0, len(order)*2)
		currentCount := len(order) * 2
		for _, seed := range order {
			next = append(next, seed, (currentCount-1)-seed)
		}
		order = next
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(order); i += 2 {
		pairs = append(pairs, [2]int{order[i], order[i+1]})
	}
	return pairs
}

// setsFor is the number of sets a match is played over.
func setsFor(ev *event.Event, m *event.Match) int {
	if m.LosersBracket && ev.LoserSetCount > 0 {
		return ev.LoserSetCount
	}
	if m.BracketSide != event.LeagueSide && ev.WinnerSetCount > 0 {
		return ev.WinnerSetCount
	}
	return max(ev.SetsPerMatch, 1)
}

func matchDuration(ev *event.Event, m *event.Match, opts Options) time.Duration {
	if ev.UsesSets {
		per := opts.SetDuration
		if ev.SetDurationMinutes > 0 {
			per = time.Duration(ev.SetDurationMinutes) * time.Minute
		}
		return per * time.Duration(setsFor(ev, m))
	}
	if ev.MatchDurationMinutes > 0 {
		return time.Duration(ev.MatchDurationMinutes) * time.Minute
	}
	return opts.MatchDuration
}

func bufferFor(ev *event.Event, m *event.Match, opts Options) time.Duration {
	if ev.RestTimeMinutes > 0 {
		return time.Duration(ev.RestTimeMinutes) * time.Minute
	}
	if ev.UsesSets {
		return opts.SetRest * time.Duration(setsFor(ev, m))
	}
	return 0
}
