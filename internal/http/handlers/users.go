package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/drborges/apollo-react-spike/internal/client"
	"github.com/drborges/apollo-react-spike/internal/http/respond"
	"github.com/drborges/apollo-react-spike/internal/middleware"
	"github.com/drborges/apollo-react-spike/internal/models"
	"github.com/drborges/apollo-react-spike/internal/session"
	"github.com/drborges/apollo-react-spike/internal/storage"
)

// Sessions resolves the client bound to a request.
type Sessions interface {
	Resolve(w http.ResponseWriter, r *http.Request) (*client.Client, error)
	Lookup(r *http.Request) (*client.Client, error)
}

// UsersHandler serves the user list page and its local mutations.
type UsersHandler struct {
	sessions Sessions
	live     *LiveHandler
}

// NewUsersHandler constructs the handler. origins gates the /live websocket.
func NewUsersHandler(sessions Sessions, origins middleware.Origins) *UsersHandler {
	return &UsersHandler{
		sessions: sessions,
		live:     NewLiveHandler(sessions, origins),
	}
}

// Register attaches the user routes to the router.
func (h *UsersHandler) Register(r *mux.Router) {
	r.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/users", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/toggle", h.handleToggle).Methods(http.MethodPost)
	r.HandleFunc("/refresh", h.handleRefresh).Methods(http.MethodPost)
	r.Handle("/live", h.live).Methods(http.MethodGet)
}

// viewBody is the JSON shape of a client view.
type viewBody struct {
	Status  string        `json:"status"`
	Error   string        `json:"error,omitempty"`
	Version uint64        `json:"version"`
	Users   []models.User `json:"users"`
}

func newViewBody(v client.View) viewBody {
	body := viewBody{Status: v.Status.Phase.String(), Version: v.Version, Users: v.Users}
	if body.Users == nil {
		body.Users = []models.User{}
	}
	if v.Status.Err != nil {
		body.Error = v.Status.Err.Error()
	}
	return body
}

func sessionStatus(err error) int {
	if errors.Is(err, session.ErrSessionLimit) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *UsersHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Resolve(w, r)
	if err != nil {
		glog.Infof("[h]resolve session error = %s\n", err)
		http.Error(w, "session unavailable", sessionStatus(err))
		return
	}
	load(r.Context(), c)

	view := c.View()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if view.Status.Phase == client.Failed {
		w.WriteHeader(http.StatusBadGateway)
	}
	if err := renderPage(w, view); err != nil {
		glog.Infof("[h]render page error = %s\n", err)
	}
}

func (h *UsersHandler) handleList(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Resolve(w, r)
	if err != nil {
		respond.Error(w, sessionStatus(err), "session unavailable")
		return
	}
	if err := load(r.Context(), c); err != nil {
		respond.JSON(w, http.StatusBadGateway, "failed to fetch users", newViewBody(c.View()))
		return
	}
	respond.JSON(w, http.StatusOK, "ok", newViewBody(c.View()))
}

func (h *UsersHandler) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	c, err := h.sessions.Resolve(w, r)
	if err != nil {
		respond.Error(w, sessionStatus(err), "session unavailable")
		return
	}
	result, err := c.ToggleUserBlockState(id)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			respond.Error(w, http.StatusNotFound, "user not found")
		default:
			glog.Infof("[h]toggle user %d error = %s\n", id, err)
			respond.Error(w, http.StatusInternalServerError, "failed to toggle user")
		}
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	respond.JSON(w, http.StatusOK, "toggled", result)
}

func (h *UsersHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Resolve(w, r)
	if err != nil {
		respond.Error(w, sessionStatus(err), "session unavailable")
		return
	}
	err = c.Refresh(r.Context())
	if err == nil {
		c.StartLiveUpdates()
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		respond.JSON(w, http.StatusBadGateway, "failed to fetch users", newViewBody(c.View()))
		return
	}
	respond.JSON(w, http.StatusOK, "refreshed", newViewBody(c.View()))
}

// load runs the first read for a client and starts its live updates once
// there is a list to merge into.
func load(ctx context.Context, c *client.Client) error {
	if err := c.Load(ctx); err != nil {
		return err
	}
	c.StartLiveUpdates()
	return nil
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
