// Package process runs external tools and handles process lifecycle and
// signals
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/depot-build/depot/pkg/logger"
)

// Manager cancels a run on SIGINT or SIGTERM and invokes shutdown handlers
type Manager struct {
	logger           logger.Logger
	shutdownHandlers []func()
	signals          []os.Signal

	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	cancel  context.CancelFunc
}

// NewManager creates a new process manager
func NewManager(log logger.Logger) *Manager {
	return &Manager{
		logger:  log,
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// RegisterShutdownHandler adds a shutdown handler. Handlers run in reverse
// registration order.
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// Start begins watching for signals and returns a context that is
// canceled when one arrives. Stop must be called to release resources.
func (m *Manager) Start(parent context.Context) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	if m.running {
		cancel()
		return parent
	}
	m.running = true
	m.cancel = cancel
	m.stop = make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, m.signals...)

	stop := m.stop
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			m.logger.Warn("Received signal, shutting down", logger.WithField("signal", sig))
			cancel()
			m.handleShutdown()
		case <-ctx.Done():
		case <-stop:
		}
	}()

	return ctx
}

// Stop stops watching for signals and cancels the context returned by Start
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	cancel := m.cancel
	m.mu.Unlock()

	m.wg.Wait()
	cancel()
}

// IsRunning checks if the manager is watching for signals
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Shutdown runs the shutdown handlers without waiting for a signal
func (m *Manager) Shutdown() {
	m.handleShutdown()
}

func (m *Manager) handleShutdown() {
	m.mu.Lock()
	handlers := make([]func(), len(m.shutdownHandlers))
	copy(handlers, m.shutdownHandlers)
	m.shutdownHandlers = nil
	m.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
}
