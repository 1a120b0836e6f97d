// Package httpapi serves the chat API to browsers over HTTP and WebSocket.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/matheus3301/storechat/internal/api"
	"github.com/matheus3301/storechat/internal/bus"
	"github.com/matheus3301/storechat/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Config configures the gateway.
type Config struct {
	Addr           string
	SendRate       float64 // sends per second per client; <= 0 disables limiting
	SendBurst      int
	AllowedOrigins []string
}

// Server is the gin gateway in front of an api.ChatServer.
type Server struct {
	cfg      Config
	svc      api.ChatServer
	bus      *bus.Bus
	instance string
	logger   *zap.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu       sync.Mutex
	srv      *http.Server
	done     chan struct{}
	stopOnce sync.Once
}

// New builds the router. Nothing listens until Start.
func New(cfg Config, svc api.ChatServer, b *bus.Bus, instance string, logger *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		bus:      b,
		instance: instance,
		logger:   logger,
		done:     make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", s.serveEvents)

	v1 := r.Group("/api/v1")
	v1.GET("/status", s.getStatus)
	v1.GET("/rooms", s.listRooms)
	v1.GET("/rooms/:id", s.getRoom)
	v1.GET("/rooms/:id/history", s.history)
	send := []gin.HandlerFunc{}
	if s.cfg.SendRate > 0 {
		burst := max(s.cfg.SendBurst, 1)
		send = append(send, newLimiter(rate.Limit(s.cfg.SendRate), burst, 2*time.Minute).middleware())
	}
	send = append(send, s.sendMessage)
	v1.POST("/rooms/:id/messages", send...)
	v1.POST("/rooms/:id/read", s.markAsRead)
	v1.PUT("/rooms/:id/typing", s.setTyping)
	v1.GET("/layout", s.getLayout)
	v1.POST("/windows/:id/:action", s.windowAction)
	v1.PUT("/main-page", s.setMainPage)
	v1.GET("/search", s.search)
	return r
}

// Start listens on cfg.Addr and serves until Stop. It returns nil after a clean stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener.
func (s *Server) Serve(lis net.Listener) error {
	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	s.logger.Info("http gateway starting", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes WebSocket streams and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("http gateway stopping")
	return srv.Shutdown(ctx)
}

func (s *Server) getStatus(c *gin.Context) {
	resp, err := s.svc.GetStatus(c.Request.Context(), &api.StatusRequest{})
	reply(c, resp, err)
}

func (s *Server) listRooms(c *gin.Context) {
	resp, err := s.svc.ListRooms(c.Request.Context(), &api.ListRoomsRequest{})
	reply(c, resp, err)
}

func (s *Server) getRoom(c *gin.Context) {
	resp, err := s.svc.GetRoom(c.Request.Context(), &api.RoomRequest{RoomID: c.Param("id")})
	reply(c, resp, err)
}

func (s *Server) sendMessage(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	resp, err := s.svc.SendMessage(c.Request.Context(), &api.SendMessageRequest{RoomID: c.Param("id"), Text: body.Text})
	reply(c, resp, err)
}

func (s *Server) markAsRead(c *gin.Context) {
	resp, err := s.svc.MarkAsRead(c.Request.Context(), &api.RoomRequest{RoomID: c.Param("id")})
	reply(c, resp, err)
}

func (s *Server) setTyping(c *gin.Context) {
	var body struct {
		Typing bool `json:"typing"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	resp, err := s.svc.SetTyping(c.Request.Context(), &api.SetTypingRequest{RoomID: c.Param("id"), Typing: body.Typing})
	reply(c, resp, err)
}

func (s *Server) getLayout(c *gin.Context) {
	resp, err := s.svc.GetLayout(c.Request.Context(), &api.LayoutRequest{})
	reply(c, resp, err)
}

func (s *Server) windowAction(c *gin.Context) {
	req := &api.RoomRequest{RoomID: c.Param("id")}
	ctx := c.Request.Context()
	var (
		resp *api.LayoutResponse
		err  error
	)
	switch c.Param("action") {
	case "open":
		resp, err = s.svc.OpenWindow(ctx, req)
	case "close":
		resp, err = s.svc.CloseWindow(ctx, req)
	case "minimize":
		resp, err = s.svc.MinimizeWindow(ctx, req)
	case "maximize":
		resp, err = s.svc.MaximizeWindow(ctx, req)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown window action"})
		return
	}
	reply(c, resp, err)
}

func (s *Server) setMainPage(c *gin.Context) {
	var body api.SetMainPageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	resp, err := s.svc.SetMainPage(c.Request.Context(), &body)
	reply(c, resp, err)
}

func (s *Server) search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	resp, err := s.svc.SearchArchive(c.Request.Context(), &api.SearchRequest{
		Query:  c.Query("q"),
		RoomID: c.Query("room_id"),
		Limit:  limit,
	})
	reply(c, resp, err)
}

func (s *Server) history(c *gin.Context) {
	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	resp, err := s.svc.ListArchivedMessages(c.Request.Context(), &api.HistoryRequest{
		RoomID:   c.Param("id"),
		BeforeMs: before,
		Limit:    limit,
	})
	reply(c, resp, err)
}

func reply(c *gin.Context, resp any, err error) {
	if err != nil {
		st := grpcstatus.Convert(err)
		c.JSON(httpStatus(st.Code()), gin.H{"error": st.Message()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
