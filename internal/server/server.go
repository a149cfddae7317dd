// Package server exposes detection and chat over HTTP for the browser widget.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/bhasha/internal"
	"github.com/valpere/bhasha/internal/chat"
	"github.com/valpere/bhasha/internal/langid"
)

// maxSessions bounds the in-memory chat sessions; the least recently used is evicted.
const maxSessions = 1000

// History records detections. *store.Store satisfies it.
type History interface {
	SaveDetection(ctx context.Context, rec internal.DetectionRecord) (string, error)
}

type Options struct {
	// Replier answers chat messages. Without one /v1/chat is unavailable.
	Replier    chat.Replier
	History    History
	CORSOrigin string
	Logger     *slog.Logger
}

type session struct {
	conv     *chat.Conversation
	lastUsed time.Time
}

type Server struct {
	catalog  *langid.Catalog
	resolver chat.Resolver
	opts     Options
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func New(catalog *langid.Catalog, resolver chat.Resolver, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	return &Server{
		catalog:  catalog,
		resolver: resolver,
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]*session),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.corsMiddleware(), metricsMiddleware(), s.loggingMiddleware())

	router.GET("/healthz", s.healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/languages", s.languagesHandler)
		v1.POST("/detect", s.detectHandler)
		v1.POST("/chat", s.chatHandler)
	}

	return router
}

// conversation returns the session for id, creating one when id is empty or unknown.
func (s *Server) conversation(id, selected string) (string, *chat.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.lastUsed = time.Now()
		return id, sess.conv
	}

	if len(s.sessions) >= maxSessions {
		s.evictOldest()
	}

	conv := chat.NewConversation(selected, s.resolver, s.opts.Replier, s.logger)
	newID := conv.Session().ID
	s.sessions[newID] = &session{conv: conv, lastUsed: time.Now()}
	chatSessionsActive.Set(float64(len(s.sessions)))
	return newID, conv
}

func (s *Server) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastUsed.Before(oldest) {
			oldestID, oldest = id, sess.lastUsed
		}
	}
	delete(s.sessions, oldestID)
}

func (s *Server) record(ctx context.Context, rec internal.DetectionRecord) {
	if s.opts.History == nil {
		return
	}
	if _, err := s.opts.History.SaveDetection(ctx, rec); err != nil {
		s.logger.Warn("failed to record detection", "error", err)
	}
}
