package server

import (
	"context"
	"sync"
)

// Pinger reports whether a dependency is reachable. *store.Store
// implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerContext holds what the MCP server shares across requests.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	store    Pinger
	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a server context derived from ctx.
func NewServerContext(ctx context.Context, store Pinger) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		store:  store,
	}
}

// Context returns the server context. It is cancelled by Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Store returns the email store, or nil.
func (sc *ServerContext) Store() Pinger {
	return sc.store
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return
	}
	sc.shutdown = true
	sc.cancel()
}
