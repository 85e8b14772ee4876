package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/saolsen/gameplay/game"
	"github.com/saolsen/gameplay/internal/agent"
	"github.com/saolsen/gameplay/internal/auth"
	"github.com/saolsen/gameplay/internal/bot"
	"github.com/saolsen/gameplay/internal/match"
	"github.com/saolsen/gameplay/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, s.bots.Names())
}

func (s *Server) handleDecide(c *gin.Context) {
	var req agent.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AgentName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agentname is required"})
		return
	}

	resp, err := s.bots.Decide(c.Request.Context(), req)
	switch {
	case errors.Is(err, bot.ErrUnknownBot):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, resp)
	}
}

type createMatchRequest struct {
	Game    game.Kind      `json:"game" binding:"required"`
	Players []store.Player `json:"players" binding:"required"`
}

func (s *Server) handleCreateMatch(c *gin.Context) {
	var req createMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := auth.FromContext(c)
	if err := id.Permits(req.Game, len(req.Players)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	participants, err := s.resolver.ResolveAll(req.Players)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := s.coord.Start(c.Request.Context(), req.Game, participants)
	switch {
	case errors.Is(err, match.ErrUnknownGame), errors.Is(err, game.ErrArgs):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("Failed to start match", "game", req.Game, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start match"})
		return
	}

	if id != nil {
		s.logger.Info("Match requested", "match", m.ID, "account", id.Account)
	}
	s.run(m.ID, participants)

	out, err := s.public(m)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// matchResponse is a match as spectators see it.
type matchResponse struct {
	store.Match
	Running bool `json:"running"`
}

func (s *Server) public(m *store.Match) (*matchResponse, error) {
	g, err := s.coord.Game(m.Game)
	if err != nil {
		return nil, err
	}
	state, err := match.PublicState(g, m.State, m.Status)
	if err != nil {
		return nil, err
	}
	out := &matchResponse{Match: *m, Running: s.coord.Running(m.ID)}
	out.State = state
	return out, nil
}

func (s *Server) handleListMatches(c *gin.Context) {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}
	opts := store.ListOptions{Game: game.Kind(c.Query("game")), Limit: limit}

	ms, err := s.coord.Store().ListMatches(c.Request.Context(), opts)
	if err != nil {
		s.internalError(c, err)
		return
	}
	out := make([]*matchResponse, 0, len(ms))
	for i := range ms {
		m, err := s.public(&ms[i])
		if err != nil {
			s.internalError(c, err)
			return
		}
		out = append(out, m)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getMatch(c *gin.Context) (*store.Match, bool) {
	m, err := s.coord.Store().GetMatch(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return nil, false
	case err != nil:
		s.internalError(c, err)
		return nil, false
	}
	return m, true
}

func (s *Server) handleGetMatch(c *gin.Context) {
	m, ok := s.getMatch(c)
	if !ok {
		return
	}
	out, err := s.public(m)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// handleListTurns lists a match's turns. While the match is in progress each
// state is the public view and agent data is withheld.
func (s *Server) handleListTurns(c *gin.Context) {
	m, ok := s.getMatch(c)
	if !ok {
		return
	}
	g, err := s.coord.Game(m.Game)
	if err != nil {
		s.internalError(c, err)
		return
	}
	turns, err := s.coord.Store().ListTurns(c.Request.Context(), m.ID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	for i := range turns {
		if turns[i].State, err = match.PublicState(g, turns[i].State, m.Status); err != nil {
			s.internalError(c, err)
			return
		}
		if !m.Status.Over {
			turns[i].AgentData = nil
		}
	}
	c.JSON(http.StatusOK, turns)
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
