package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/a-h/templ"
)

const pageHead = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<link rel="stylesheet" href="/static/app.css">
</head>
<body>
`

// layout wraps body in the shared page shell with the signed in user's header.
func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, pageHead, templ.EscapeString(title)); err != nil {
			return err
		}
		if user := GetUser(ctx); user != nil {
			_, err := fmt.Fprintf(w, `<header><span class="user">%s</span>
<form method="post" action="/logout"><button type="submit">Log out</button></form></header>
`, templ.EscapeString(user.Label()))
			if err != nil {
				return err
			}
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

func LoginPage(providers []string) templ.Component {
	return layout("Sign in", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<main class=\"login\">\n<h1>Sign in</h1>\n")
		for _, p := range providers {
			fmt.Fprintf(&b, "<a class=\"provider\" href=\"/auth/%s\">Continue with %s</a>\n",
				templ.EscapeString(p), templ.EscapeString(strings.ToUpper(p[:1])+p[1:]))
		}
		b.WriteString("<form method=\"post\" action=\"/auth/guest\"><button type=\"submit\">Continue as guest</button></form>\n</main>\n")
		_, err := io.WriteString(w, b.String())
		return err
	}))
}

func Index(events []event.Event) templ.Component {
	return layout("Your events", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<main>\n<h1>Your events</h1>\n")
		if len(events) == 0 {
			b.WriteString("<p class=\"empty\">No events yet.</p>\n")
		} else {
			b.WriteString("<ul class=\"events\">\n")
			for _, ev := range events {
				fmt.Fprintf(&b, "<li><a href=\"/events/%s/schedule\">%s</a> <span class=\"type\">%s</span> <time>%s</time></li>\n",
					ev.ID, templ.EscapeString(ev.Name), templ.EscapeString(string(ev.Type)), ev.Start.Format("Jan 2, 2006"))
			}
			b.WriteString("</ul>\n")
		}
		b.WriteString("</main>\n")
		_, err := io.WriteString(w, b.String())
		return err
	}))
}

// SchedulePage renders the bracket by side and round, then the day by day
// field listing. The page reloads itself on websocket updates.
func SchedulePage(data ScheduleData) templ.Component {
	return layout(data.Event.Name, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, "<main data-event=\"%s\">\n<h1>%s</h1>\n", data.Event.ID, templ.EscapeString(data.Event.Name))

		for _, bd := range data.Brackets {
			fmt.Fprintf(&b, "<section class=\"division\">\n<h2>%s</h2>\n", templ.EscapeString(bd.Division.Name))
			for _, side := range bd.Sides {
				fmt.Fprintf(&b, "<div class=\"side side-%s\">\n<h3>%s</h3>\n", side.Side, SideName(side.Side))
				for _, round := range side.RoundNums {
					fmt.Fprintf(&b, "<ol class=\"round\" data-round=\"%d\">\n", round)
					for _, m := range side.Rounds[round] {
						writeMatchRow(&b, data, &m)
					}
					b.WriteString("</ol>\n")
				}
				b.WriteString("</div>\n")
			}
			b.WriteString("</section>\n")
		}

		for _, day := range data.Days {
			fmt.Fprintf(&b, "<section class=\"day\">\n<h2>%s</h2>\n<ol>\n", day.Date.Format("Monday, Jan 2"))
			for _, m := range day.Matches {
				writeMatchRow(&b, data, &m)
			}
			b.WriteString("</ol>\n</section>\n")
		}

		if len(data.Unplaced) > 0 {
			b.WriteString("<section class=\"unplaced\">\n<h2>Waiting for a time</h2>\n<ol>\n")
			for _, m := range data.Unplaced {
				writeMatchRow(&b, data, &m)
			}
			b.WriteString("</ol>\n</section>\n")
		}

		fmt.Fprintf(&b, `<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/events/%s/ws");
ws.onmessage = () => location.reload();
</script>
</main>
`, data.Event.ID)
		_, err := io.WriteString(w, b.String())
		return err
	}))
}

func writeMatchRow(b *strings.Builder, data ScheduleData, m *event.Match) {
	where := "Unplaced"
	if m.FieldID != nil {
		if f, ok := data.Fields[*m.FieldID]; ok {
			where = f.Name
			if where == "" {
				where = fmt.Sprintf("Field %d", f.FieldNumber)
			}
		}
	}
	fmt.Fprintf(b, "<li class=\"match status-%s\" data-match=\"%s\"><span class=\"label\">%s</span> %s vs %s <span class=\"where\">%s %s-%s</span>",
		m.Status, m.ID,
		templ.EscapeString(MatchLabel(m)),
		templ.EscapeString(data.SlotLabel(m.Team1)),
		templ.EscapeString(data.SlotLabel(m.Team2)),
		templ.EscapeString(where), formatClock(m.Start), formatClock(m.End))
	if m.IsFinalized() {
		fmt.Fprintf(b, " <span class=\"score\">%d-%d</span>", m.Team1Points, m.Team2Points)
	}
	if m.Locked {
		b.WriteString(" <span class=\"locked\">locked</span>")
	}
	if m.RefereeID != nil {
		if name, ok := data.Referees[*m.RefereeID]; ok {
			fmt.Fprintf(b, " <span class=\"referee\">%s</span>", templ.EscapeString(name))
		}
	}
	b.WriteString("</li>\n")
}
