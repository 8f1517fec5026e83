package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/AdamBeresnev/matchday/internal/middleware"
	users "github.com/AdamBeresnev/matchday/internal/user"
)

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}

var sideNames = map[event.BracketSide]string{
	event.WinnersSide:  "Winners",
	event.LosersSide:   "Losers",
	event.FinalsSide:   "Finals",
	event.LeagueSide:   "League",
	event.PlayoffsSide: "Playoffs",
}

func SideName(side event.BracketSide) string {
	if name, ok := sideNames[side]; ok {
		return name
	}
	if side == "" {
		return ""
	}
	return strings.ToUpper(string(side[:1])) + string(side[1:])
}

// MatchLabel is a short human name such as "Winners R2 #1".
func MatchLabel(m *event.Match) string {
	if m.BracketSide == event.LeagueSide {
		return fmt.Sprintf("League #%d", m.MatchOrder)
	}
	return fmt.Sprintf("%s R%d #%d", SideName(m.BracketSide), m.RoundNumber, m.MatchOrder)
}

func formatClock(t *time.Time) string {
	if t == nil {
		return "--:--"
	}
	return t.Format("15:04")
}
