package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rejdysan/home-hub/internal/hub"
)

const writeTimeout = 10 * time.Second

// StateProvider 提供新连接的初始全量状态，由 service 实现
type StateProvider interface {
	InitialState() hub.InitialStateMessage
}

// Server 面向前端的 HTTP + WebSocket 服务
type Server struct {
	hub           *hub.Hub
	state         StateProvider
	staticDir     string
	heartbeatIdle time.Duration
	logger        *zap.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer 创建前端服务
func NewServer(addr string, h *hub.Hub, state StateProvider, staticDir string, heartbeatIdle time.Duration, logger *zap.Logger) *Server {
	s := &Server{
		hub:           h,
		state:         state,
		staticDir:     staticDir,
		heartbeatIdle: heartbeatIdle,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 局域网面板，不做来源校验
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	mux.HandleFunc("/", s.handleIndex)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Run 阻塞运行 HTTP 服务，正常关停时返回 nil
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关停 HTTP 服务
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.staticDir, "index.html"))
}

// handleWebSocket 观察端握手：升级 → 准入 → 下发 initial → 读循环
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	sender := newWSConn(ws)
	conn := hub.NewConnection(r.RemoteAddr, sender)

	if err := s.hub.Connect(conn); err != nil {
		// 超限连接先收到策略违规关闭帧，再断开，永远不进入广播集合
		deadline := time.Now().Add(writeTimeout)
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "maximum connections reached")
		_ = ws.WriteControl(websocket.CloseMessage, closeMsg, deadline)
		_ = ws.Close()
		return
	}

	if err := s.sendInitialState(conn); err != nil {
		s.logger.Warn("Failed to send initial state",
			zap.String("connection_id", conn.ID),
			zap.Error(err),
		)
		s.hub.Disconnect(conn.ID)
		return
	}

	done := make(chan struct{})
	go s.heartbeatLoop(conn, sender, done)

	// 读循环感知断连并记录入站活动，内容本身忽略
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
		sender.markActivity()
	}
	close(done)
	s.hub.Disconnect(conn.ID)
}

func (s *Server) sendInitialState(conn *hub.Connection) error {
	data, err := s.state.InitialState().Encode()
	if err != nil {
		return err
	}
	return conn.Send(data)
}

// heartbeatLoop 入站沉默超过阈值时下发心跳，直到连接结束
// 空闲只看观察端的入站消息，广播写出不算活跃；
// 检查周期取阈值的四分之一，保证心跳不会迟到太多
func (s *Server) heartbeatLoop(conn *hub.Connection, sender *wsConn, done <-chan struct{}) {
	data, err := hub.HeartbeatMessage{}.Encode()
	if err != nil {
		return
	}

	checkInterval := s.heartbeatIdle / 4
	if checkInterval <= 0 {
		checkInterval = time.Second
	}

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if sender.idleFor() < s.heartbeatIdle {
				continue
			}
			if err := conn.Send(data); err != nil {
				s.hub.Disconnect(conn.ID)
				return
			}
			sender.markActivity()
		}
	}
}
