package speaking

import (
	"fmt"
	"net/http"
	"sync"

	"vstep-prep-backend/config"

	"github.com/gorilla/websocket"
)

const poolSize = 4

type WSConnection struct {
	conn *websocket.Conn

	// A connection that saw a protocol error must not be reused
	broken bool
}

type connectionPool struct {
	mu    sync.Mutex
	conns []*WSConnection
}

var wsConnectionPool = &connectionPool{}

func (p *connectionPool) Get() (*WSConnection, error) {
	p.mu.Lock()
	if n := len(p.conns); n > 0 {
		conn := p.conns[n-1]
		p.conns = p.conns[:n-1]
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	return dial()
}

func (p *connectionPool) Put(conn *WSConnection) {
	if conn == nil {
		return
	}
	if conn.broken {
		conn.conn.Close()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.conns) >= poolSize {
		conn.conn.Close()
		return
	}
	p.conns = append(p.conns, conn)
}

func dial() (*WSConnection, error) {
	header := http.Header{}
	header.Set("Authorization", "bearer "+config.Cfg.ASR.APIKey)
	header.Set("X-DashScope-DataInspection", "enable")

	conn, _, err := websocket.DefaultDialer.Dial(config.Cfg.ASR.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial asr endpoint: %v", err)
	}
	return &WSConnection{conn: conn}, nil
}
