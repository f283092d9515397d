package hub

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrTooManyConnections 达到连接上限时的准入拒绝
var ErrTooManyConnections = errors.New("maximum connections reached")

// Hub 观察端广播中心
// 连接集合被多个交错任务（握手、广播、断连清理）访问，必须持锁修改；
// 发送永远在锁外进行
type Hub struct {
	mu     sync.Mutex
	conns  map[string]*Connection
	max    int
	logger *zap.Logger
}

// NewHub 创建广播中心
func NewHub(maxConnections int, logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Connection),
		max:    maxConnections,
		logger: logger,
	}
}

// Connect 准入一条新连接，超过上限返回 ErrTooManyConnections
func (h *Hub) Connect(conn *Connection) error {
	h.mu.Lock()
	if len(h.conns) >= h.max {
		h.mu.Unlock()
		h.logger.Warn("Viewer rejected, connection cap reached",
			zap.String("remote_addr", conn.RemoteAddr),
			zap.Int("max_connections", h.max),
		)
		return ErrTooManyConnections
	}
	h.conns[conn.ID] = conn
	total := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("Viewer connected",
		zap.String("connection_id", conn.ID),
		zap.String("remote_addr", conn.RemoteAddr),
		zap.Int("total", total),
		zap.Int("max_connections", h.max),
	)
	return nil
}

// Disconnect 移除连接并关闭，重复调用安全
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	conn, ok := h.conns[id]
	if ok {
		delete(h.conns, id)
	}
	total := len(h.conns)
	h.mu.Unlock()

	if !ok {
		return
	}
	if err := conn.Close(); err != nil {
		h.logger.Debug("Error closing viewer connection", zap.Error(err))
	}
	h.logger.Info("Viewer disconnected",
		zap.String("connection_id", conn.ID),
		zap.Int("total", total),
	)
}

// ActiveCount 当前活跃连接数
func (h *Hub) ActiveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast 向所有连接分发一条消息
// 载荷只序列化一次；持锁取快照，锁外并发发送；
// 单个连接发送失败只断开该连接，不影响其余投递
func (h *Hub) Broadcast(msg Message) {
	data, err := msg.Encode()
	if err != nil {
		h.logger.Error("Failed to encode broadcast message",
			zap.String("message_type", string(msg.Type())),
			zap.Error(err),
		)
		return
	}

	h.mu.Lock()
	snapshot := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		snapshot = append(snapshot, conn)
	}
	h.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	var failed []string

	for _, conn := range snapshot {
		wg.Add(1)
		go func(conn *Connection) {
			defer wg.Done()
			if err := conn.Send(data); err != nil {
				h.logger.Warn("Failed to send to viewer",
					zap.String("connection_id", conn.ID),
					zap.String("message_type", string(msg.Type())),
					zap.Error(err),
				)
				failedMu.Lock()
				failed = append(failed, conn.ID)
				failedMu.Unlock()
			}
		}(conn)
	}
	wg.Wait()

	for _, id := range failed {
		h.Disconnect(id)
	}
}

// CloseAll 关停时断开所有连接
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.conns = make(map[string]*Connection)
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
