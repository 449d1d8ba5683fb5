package handler

import (
	"net/http"

	"github.com/mcoot/worldgate/internal/api/response"
	"github.com/mcoot/worldgate/internal/services/roster"
)

// RosterSource exposes the live roster
type RosterSource interface {
	Roster() []roster.Entry
	Sessions() int
}

// RosterHandler handles the roster endpoint
type RosterHandler struct {
	source RosterSource
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(source RosterSource) *RosterHandler {
	return &RosterHandler{source: source}
}

// Get handles GET /api/v1/roster
func (h *RosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	entries := h.source.Roster()
	players := make([]response.RosterEntry, len(entries))
	for i, e := range entries {
		players[i] = response.RosterEntryFromModel(e)
	}
	response.JSON(w, http.StatusOK, response.Roster{
		Players:  players,
		Sessions: h.source.Sessions(),
	})
}
