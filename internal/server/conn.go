package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn gorilla 连接的发送适配器
// websocket 连接同一时刻只允许一个写入者，所有写出都持锁串行化
type wsConn struct {
	ws *websocket.Conn

	mu sync.Mutex
	// 最近一次入站活动（或心跳下发）的时间，心跳以它计算空闲
	lastActivity time.Time
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:           ws,
		lastActivity: time.Now(),
	}
}

// Send 写出一条文本帧
func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close 关闭底层连接
func (c *wsConn) Close() error {
	return c.ws.Close()
}

// markActivity 重置空闲计时，读循环收到消息或心跳发出后调用
func (c *wsConn) markActivity() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
}

// idleFor 距上次入站活动经过的时间
func (c *wsConn) idleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastActivity)
}
