package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/chrono/internal/config"
	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/core/tracker"
	"github.com/agenthands/chrono/internal/core/views"
	"github.com/agenthands/chrono/internal/research"
	"github.com/agenthands/chrono/internal/sched"
	"github.com/agenthands/chrono/internal/stream"
)

type Server struct {
	Research research.Client
	State    *State
	Feed     *Feed
	logger   *slog.Logger
}

// NewServer wires one client state to a research backend. Timers run on s.
func NewServer(cfg *config.Config, client research.Client, driver stream.Driver, s sched.Scheduler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	feed := NewFeed(logger)
	st, err := NewState(cfg, driver, s, feed, logger)
	if err != nil {
		return nil, err
	}
	srv := &Server{Research: client, State: st, Feed: feed, logger: logger}
	feed.OnControl(srv.handleControl)
	return srv, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/sessions", s.CreateSession)
	r.POST("/sessions/:id/start", s.StartSession)
	r.DELETE("/sessions/current", s.StopSession)

	r.GET("/timeline", s.Timeline)
	r.GET("/timeline/view", s.TimelineView)
	r.GET("/timeline/nodes/:id/connections", s.NodeConnections)
	r.GET("/timeline/export", s.Export)

	r.GET("/filter", s.GetFilter)
	r.PUT("/filter", s.PutFilter)
	r.POST("/filter/significance/:level/toggle", s.ToggleSignificance)
	r.POST("/filter/search", s.Search)
	r.POST("/filter/reset", s.ResetFilter)
	r.GET("/filter/matches", s.Matches)
	r.POST("/filter/matches/next", s.NextMatch)
	r.POST("/filter/matches/prev", s.PrevMatch)

	r.POST("/viewport", s.Viewport)
	r.POST("/navigate/:id", s.Navigate)

	r.GET("/events", s.Feed.ServeSSE)
	r.GET("/ws", s.Feed.ServeWS)

	return r
}

func (s *Server) Close() {
	s.State.Close()
	s.Feed.Close()
}

func (s *Server) CreateSession(c *gin.Context) {
	var req model.ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp, err := s.Research.CreateSession(c.Request.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, research.ErrEmptyTopic):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, research.ErrServiceUnavailable):
		s.logger.Warn("research service rejected session", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Service temporarily unavailable. Please try again."})
		return
	default:
		s.logger.Error("failed to create session", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Network error. Please check your connection."})
		return
	}

	s.State.RememberProposal(resp.SessionID, resp.Proposal)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) StartSession(c *gin.Context) {
	id := c.Param("id")
	err := s.State.Start(id)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, s.State.Snapshot())
	case errors.Is(err, stream.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, stream.ErrSessionStarted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		s.logger.Error("failed to start session", "session", id, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to open research stream"})
	}
}

func (s *Server) StopSession(c *gin.Context) {
	if err := s.State.Stop(); err != nil {
		s.logger.Warn("failed to close stream", "err", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

func (s *Server) Timeline(c *gin.Context) {
	c.JSON(http.StatusOK, s.State.Snapshot())
}

func (s *Server) TimelineView(c *gin.Context) {
	c.JSON(http.StatusOK, s.State.Derived())
}

func (s *Server) NodeConnections(c *gin.Context) {
	id := c.Param("id")
	conns := s.State.Connections(id)
	corrections := s.State.Snapshot().DateCorrections(id)
	if corrections == nil {
		corrections = []model.DateCorrection{}
	}
	c.JSON(http.StatusOK, gin.H{
		"node_id":          id,
		"outgoing":         conns.Outgoing,
		"incoming":         conns.Incoming,
		"date_corrections": corrections,
	})
}

func (s *Server) Export(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="timeline.json"`)
	c.JSON(http.StatusOK, s.State.Export())
}

func (s *Server) GetFilter(c *gin.Context) {
	c.JSON(http.StatusOK, s.State.filter.Result())
}

type FilterRequest struct {
	Significance *views.SignificanceSet `json:"significance"`
	Phase        *string                `json:"phase"`
	YearRange    *views.YearRange       `json:"year_range"`
	ClearYears   bool                   `json:"clear_year_range"`
}

// PutFilter updates the fields present in the body. The search query is
// left alone.
func (s *Server) PutFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ctl := s.State.filter
	if req.Significance != nil {
		ctl.SetSignificance(*req.Significance)
	}
	if req.Phase != nil {
		ctl.SetPhase(*req.Phase)
	}
	if req.YearRange != nil {
		ctl.SetYearRange(req.YearRange)
	} else if req.ClearYears {
		ctl.SetYearRange(nil)
	}
	c.JSON(http.StatusOK, ctl.Result())
}

func (s *Server) ToggleSignificance(c *gin.Context) {
	level := model.Significance(c.Param("level"))
	if !level.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown significance"})
		return
	}
	c.JSON(http.StatusOK, s.State.filter.ToggleSignificance(level))
}

type SearchRequest struct {
	Query     string `json:"query"`
	Immediate bool   `json:"immediate"`
}

func (s *Server) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Immediate {
		c.JSON(http.StatusOK, s.State.filter.SearchNow(req.Query))
		return
	}
	s.State.filter.Search(req.Query)
	c.JSON(http.StatusAccepted, s.State.filter.Result())
}

func (s *Server) ResetFilter(c *gin.Context) {
	c.JSON(http.StatusOK, s.State.ResetFilter())
}

func (s *Server) Matches(c *gin.Context) {
	r := s.State.filter.Result()
	c.JSON(http.StatusOK, gin.H{"matches": r.Matches, "cursor": r.Cursor, "current": r.Current})
}

func (s *Server) NextMatch(c *gin.Context) {
	s.stepMatch(c, s.State.filter.Next)
}

func (s *Server) PrevMatch(c *gin.Context) {
	s.stepMatch(c, s.State.filter.Prev)
}

// stepMatch moves the cursor and navigates to the new match.
func (s *Server) stepMatch(c *gin.Context, step func() (string, bool)) {
	id, ok := step()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"matches": []string{}, "cursor": 0})
		return
	}
	s.State.navigator.NavigateTo(id)
	r := s.State.filter.Result()
	c.JSON(http.StatusOK, gin.H{"matches": r.Matches, "cursor": r.Cursor, "current": id})
}

type ViewportRequest struct {
	Height float64                 `json:"height" binding:"required"`
	Rects  map[string]tracker.Rect `json:"rects"`
}

func (s *Server) Viewport(c *gin.Context) {
	var req ViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Height <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	c.JSON(http.StatusOK, s.State.Viewport(req.Height, req.Rects))
}

func (s *Server) Navigate(c *gin.Context) {
	id := c.Param("id")
	if !s.State.HasNode(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "node not found"})
		return
	}
	s.State.navigator.NavigateTo(id)
	c.JSON(http.StatusAccepted, gin.H{"status": "navigating", "id": id})
}

func (s *Server) handleControl(ctl Control) {
	switch ctl.Action {
	case "search":
		s.State.filter.Search(ctl.Query)
	case "search_now":
		s.State.filter.SearchNow(ctl.Query)
	case "next":
		if id, ok := s.State.filter.Next(); ok {
			s.State.navigator.NavigateTo(id)
		}
	case "prev":
		if id, ok := s.State.filter.Prev(); ok {
			s.State.navigator.NavigateTo(id)
		}
	case "navigate":
		if s.State.HasNode(ctl.ID) {
			s.State.navigator.NavigateTo(ctl.ID)
		}
	case "reset":
		s.State.ResetFilter()
	default:
		s.logger.Debug("unknown control action", "action", ctl.Action)
	}
}
