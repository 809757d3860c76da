package session

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
	"github.com/askwhyharsh/nearhelp/pkg/logger"
)

type Manager struct {
	service  *Service
	logger   logger.Logger
	interval time.Duration
}

func NewManager(service *Service, log logger.Logger, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		service:  service,
		logger:   log,
		interval: interval,
	}
}

// Start begins background cleanup of the active-session index
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Session Manager started", "interval", m.interval)

	for {
		select {
		case <-ticker.C:
			if err := m.cleanupInactiveSessions(ctx); err != nil {
				m.logger.Error("Failed to cleanup inactive sessions", "error", err)
			}
		case <-ctx.Done():
			m.logger.Info("Session Manager stopped")
			return
		}
	}
}

func (m *Manager) cleanupInactiveSessions(ctx context.Context) error {
	m.logger.Debug("Cleaning up inactive sessions")

	removed, err := m.service.PruneExpired(ctx)
	if err != nil {
		return err
	}

	m.logger.Debug("Inactive sessions cleanup completed", "removed", removed)
	return nil
}

// ValidateSession checks if a session exists and is valid
func (m *Manager) ValidateSession(ctx context.Context, sessionID string) error {
	exists, err := m.service.Exists(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to validate session: %w", err)
	}

	if !exists {
		return apperrors.ErrSessionNotFound
	}

	// Update last seen
	if err := m.service.UpdateLastSeen(ctx, sessionID); err != nil {
		m.logger.Error("Failed to update last seen", "session_id", sessionID, "error", err)
	}

	return nil
}
