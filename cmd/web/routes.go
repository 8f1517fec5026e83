package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/matchday/internal/event"
	"github.com/AdamBeresnev/matchday/internal/httputil"
	"github.com/AdamBeresnev/matchday/internal/middleware"
	"github.com/AdamBeresnev/matchday/internal/notify"
	"github.com/AdamBeresnev/matchday/internal/schedule"
	"github.com/AdamBeresnev/matchday/internal/service"
	"github.com/AdamBeresnev/matchday/internal/store"
	"github.com/AdamBeresnev/matchday/views"
	"github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	hub            *notify.Hub
	providers      []string
	userStore      *store.UserStore
	users          *service.UserService
	schedules      *service.ScheduleService
}

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(app.sessionManager.LoadAndSave)

	fileServer := http.FileServer(http.Dir("./static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := app.users.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		app.login(w, r, user.ID)
	})

	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		app.render(w, r, views.LoginPage(app.providers))
	})

	r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		user, err := app.users.EnsureGuestUser(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to login as guest", err)
			return
		}
		app.login(w, r, user.ID)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := app.sessionManager.Destroy(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to log out", err)
			return
		}
		if r.Header.Get("HX-Request") != "" {
			w.Header().Set("HX-Redirect", "/login")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(app.sessionManager, app.userStore))

		r.Get("/", app.index)

		r.Post("/events", app.createEvent)
		r.Route("/events/{id}", func(r chi.Router) {
			r.Get("/", app.getEvent)
			r.Put("/", app.updateEvent)
			r.Get("/schedule", app.schedulePage)
			r.Post("/schedule", app.scheduleEvent)
			r.Post("/reschedule", app.rescheduleEvent)
			r.Patch("/matches", app.updateMatches)
			r.Patch("/matches/{matchID}", app.updateMatch)
			r.Post("/matches/{matchID}/finalize", app.finalizeMatch)
			r.Get("/ws", app.watchEvent)
		})
	})

	return r
}

func (app *application) login(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	if err := app.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to start session", err)
		return
	}
	app.sessionManager.Put(r.Context(), middleware.SessionUserKey, userID.String())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (app *application) render(w http.ResponseWriter, r *http.Request, page templ.Component) {
	if err := views.Render(w, r, http.StatusOK, page); err != nil {
		httputil.InternalServerError(w, "Failed to render page", err)
	}
}

func (app *application) index(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	events, err := app.schedules.ListEvents(r.Context(), userID)
	if err != nil {
		httputil.InternalServerError(w, "Failed to get events", err)
		return
	}
	app.render(w, r, views.Index(events))
}

func (app *application) createEvent(w http.ResponseWriter, r *http.Request) {
	var in event.Event
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	ev, err := app.schedules.CreateEvent(r.Context(), userID, &in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ev)
}

func (app *application) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	ev, err := app.schedules.GetEvent(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ev)
}

func (app *application) updateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var in event.Event
	if err := httputil.ReadJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	ev, err := app.schedules.UpdateEvent(r.Context(), userID, id, &in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ev)
}

func (app *application) schedulePage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	ev, err := app.schedules.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			httputil.NotFound(w, "Event not found", err)
			return
		}
		httputil.InternalServerError(w, "Failed to get event", err)
		return
	}
	app.render(w, r, views.SchedulePage(views.PrepareScheduleData(ev)))
}

func (app *application) scheduleEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	res, err := app.schedules.ScheduleEvent(r.Context(), userID, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (app *application) rescheduleEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	res, err := app.schedules.RescheduleEvent(r.Context(), userID, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (app *application) updateMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	matchID, ok := urlID(w, r, "matchID")
	if !ok {
		return
	}
	var patch schedule.MatchPatch
	if err := httputil.ReadJSON(w, r, &patch); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	res, err := app.schedules.UpdateMatch(r.Context(), userID, id, matchID, patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (app *application) updateMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var updates []schedule.MatchUpdate
	if err := httputil.ReadJSON(w, r, &updates); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	res, err := app.schedules.UpdateMatches(r.Context(), userID, id, updates)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (app *application) finalizeMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	matchID, ok := urlID(w, r, "matchID")
	if !ok {
		return
	}
	var result schedule.Result
	if err := httputil.ReadJSON(w, r, &result); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	res, err := app.schedules.FinalizeMatch(r.Context(), userID, id, matchID, result)
	switch {
	case errors.Is(err, service.ErrAutoRescheduleEndLimit):
		// The result was recorded, only the follow-up placement failed
		httputil.WriteErrorWithData(w, err, res)
	case err != nil:
		httputil.WriteError(w, err)
	default:
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

func (app *application) watchEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if _, err := app.schedules.GetEvent(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	app.hub.ServeWS(w, r, id)
}

func urlID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+param, err)
		return uuid.Nil, false
	}
	return id, true
}
