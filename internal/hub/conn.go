package hub

import (
	"time"

	"github.com/google/uuid"
)

// Sender 观察端连接的发送面（由 server 包用 websocket 实现，测试用假实现）
type Sender interface {
	Send(data []byte) error
	Close() error
}

// Connection 一条活跃的观察端连接
type Connection struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	sender Sender
}

// NewConnection 创建连接句柄
func NewConnection(remoteAddr string, sender Sender) *Connection {
	return &Connection{
		ID:          uuid.NewString(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
		sender:      sender,
	}
}

// Send 向该连接写出已序列化的消息
func (c *Connection) Send(data []byte) error {
	return c.sender.Send(data)
}

// Close 关闭底层连接
func (c *Connection) Close() error {
	return c.sender.Close()
}
