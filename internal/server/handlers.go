package server

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/valpere/bhasha/internal/chat"
	"github.com/valpere/bhasha/internal/detector"
	"github.com/valpere/bhasha/internal/langid"
	"github.com/valpere/bhasha/internal/orchestrator"
)

type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

type LanguageInfo struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Native     string `json:"native"`
	SpeechCode string `json:"speech_code"`
}

type DetectRequest struct {
	Text     string `json:"text" binding:"required"`
	Selected string `json:"selected"`
}

type DetectResponse struct {
	Language string `json:"language"`
	// Switched is set when the detected language differs from the selection
	// and is not the default.
	Switched   bool                     `json:"switched"`
	Resolution *orchestrator.Resolution `json:"resolution"`
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
	// Selected is the widget's current language choice. A value different
	// from the session's selection counts as a manual change.
	Selected string `json:"selected"`
	Voice    bool   `json:"voice"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	chat.Turn
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) languagesHandler(c *gin.Context) {
	profiles := s.catalog.Profiles()
	out := make([]LanguageInfo, len(profiles))
	for i, p := range profiles {
		out[i] = LanguageInfo{Code: p.Code, Name: p.Name, Native: p.Native, SpeechCode: p.SpeechCode}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) detectHandler(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text is empty"})
		return
	}
	if req.Selected == "" {
		req.Selected = langid.DefaultLanguage
	}
	if !s.catalog.Supports(req.Selected) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported language: " + req.Selected})
		return
	}

	res := s.resolver.Resolve(c.Request.Context(), detector.DetectRequest{Text: req.Text, Selected: req.Selected})
	s.observe(req.Text, res)
	s.record(c.Request.Context(), res.Record(req.Text, req.Selected))

	c.JSON(http.StatusOK, DetectResponse{
		Language:   res.Language,
		Switched:   res.Language != langid.DefaultLanguage && res.Language != req.Selected,
		Resolution: res,
	})
}

func (s *Server) chatHandler(c *gin.Context) {
	if s.opts.Replier == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "chat backend not configured"})
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is empty"})
		return
	}
	if req.Selected != "" && !s.catalog.Supports(req.Selected) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported language: " + req.Selected})
		return
	}

	id, conv := s.conversation(req.SessionID, req.Selected)
	before := conv.Session()
	if req.Selected != "" && req.Selected != before.Selected {
		conv.SelectLanguage(req.Selected)
		before = conv.Session()
	}

	var turn *chat.Turn
	var err error
	if req.Voice {
		turn, err = conv.SendTranscript(c.Request.Context(), req.Message)
	} else {
		turn, err = conv.Send(c.Request.Context(), req.Message)
	}
	if err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}

	if turn.Resolution != nil {
		s.observe(req.Message, turn.Resolution)
		s.record(c.Request.Context(), turn.Resolution.Record(req.Message, before.Selected))
	}

	status := "ok"
	if turn.Failed {
		status = "failed"
	}
	chatRepliesTotal.WithLabelValues(status).Inc()

	c.JSON(http.StatusOK, ChatResponse{SessionID: id, Turn: *turn})
}

func (s *Server) observe(text string, res *orchestrator.Resolution) {
	detectionsTotal.WithLabelValues(res.Service, res.Language).Inc()
	detectionTextLength.Observe(float64(utf8.RuneCountInString(text)))
	if res.Heuristic != nil {
		heuristicMethodsTotal.WithLabelValues(string(res.Heuristic.Method)).Inc()
	}
	if res.Fallback {
		detectionFallbacksTotal.Inc()
	}
}
