package speech

import (
	"sync"

	"github.com/halwest-tech/kurdish-chat/backend/internal/logger"
)

// ConnectionManager 记录每个工作区当前的语音连接，同一工作区只保留最新连接。
type ConnectionManager struct {
	mu    sync.RWMutex
	conns map[string]*voiceConn
}

// NewConnectionManager 创建连接管理器
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{conns: make(map[string]*voiceConn)}
}

// Add 注册连接，并关闭同一工作区的旧连接
func (m *ConnectionManager) Add(workspaceID string, c *voiceConn) {
	m.mu.Lock()
	previous := m.conns[workspaceID]
	m.conns[workspaceID] = c
	m.mu.Unlock()

	if previous != nil && previous != c {
		logger.Info("replacing voice connection", "component", "websocket", "workspace", workspaceID)
		previous.close("replaced")
	}
}

// Remove 仅在 c 仍是当前连接时移除
func (m *ConnectionManager) Remove(workspaceID string, c *voiceConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conns[workspaceID] == c {
		delete(m.conns, workspaceID)
	}
}

// Count 返回活跃连接数
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// CloseAll 关闭所有连接，用于优雅退出
func (m *ConnectionManager) CloseAll() {
	m.mu.Lock()
	all := m.conns
	m.conns = make(map[string]*voiceConn)
	m.mu.Unlock()

	for _, c := range all {
		c.close("server shutdown")
	}
}
