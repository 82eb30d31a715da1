package replay

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agenthands/chrono/internal/core/model"
)

type sessionStatus int

const (
	statusReady sessionStatus = iota
	statusStreaming
	statusDone
)

type session struct {
	status   sessionStatus
	language string
}

type Option func(*Server)

// WithEventDelay pauses between frames.
func WithEventDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

type Server struct {
	mu       sync.Mutex
	rec      *Recording
	sessions map[string]*session
	delay    time.Duration
	logger   *slog.Logger
}

func NewServer(rec *Recording, opts ...Option) *Server {
	s := &Server{
		rec:      rec,
		sessions: make(map[string]*session),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/research", s.CreateResearch)
	r.GET("/api/research/:id/stream", s.StreamResearch)

	return r
}

func (s *Server) CreateResearch(c *gin.Context) {
	var req model.ResearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "topic is required"})
		return
	}
	if req.Language == "" {
		req.Language = model.DefaultLanguage
	}

	id := uuid.NewString()
	proposal := s.proposal(req)

	s.mu.Lock()
	s.sessions[id] = &session{language: proposal.Language}
	s.mu.Unlock()

	s.logger.Info("replay session created", "session", id, "topic", req.Topic)
	c.JSON(http.StatusOK, model.ResearchProposalResponse{SessionID: id, Proposal: proposal})
}

func (s *Server) proposal(req model.ResearchRequest) model.ResearchProposal {
	if s.rec.Proposal != nil {
		p := *s.rec.Proposal
		if req.Language != model.DefaultLanguage {
			p.Language = req.Language
		}
		return p
	}
	lang := req.Language
	if lang == model.DefaultLanguage {
		lang = "en"
	}
	return model.ResearchProposal{
		Topic:    req.Topic,
		Language: lang,
		UserFacing: model.UserFacingProposal{
			Title: req.Topic,
		},
	}
}

// StreamResearch replays the recording once per session.
func (s *Server) StreamResearch(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return
	}
	if sess.status != statusReady {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"detail": "Session already started or completed"})
		return
	}
	sess.status = statusStreaming
	language := sess.language
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		sess.status = statusDone
		s.mu.Unlock()
	}()

	frames, err := Frames(s.rec, language)
	if err != nil {
		s.logger.Error("failed to build replay frames", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "recording could not be replayed"})
		return
	}

	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	next := 0
	c.Stream(func(w io.Writer) bool {
		if next > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(s.delay):
			}
		}
		f := frames[next]
		next++
		c.Render(-1, sse.Event{
			Id:    strconv.Itoa(next),
			Event: f.Event,
			Data:  f.payload(),
		})
		return next < len(frames)
	})
	s.logger.Info("replay finished", "session", id, "frames", next)
}
