package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/askwhyharsh/nearhelp/internal/controller"
	"github.com/askwhyharsh/nearhelp/internal/location"
	"github.com/askwhyharsh/nearhelp/internal/storage"
	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
)

const activeSessionsKey = "sessions:active"

type SessionService interface {
	Create(ctx context.Context, ipAddress string) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	UpdateLastSeen(ctx context.Context, sessionID string) error
	SaveSnapshot(ctx context.Context, sessionID string, snap controller.Snapshot) error
	Delete(ctx context.Context, sessionID string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	ActiveCount(ctx context.Context) (int64, error)
}

type Service struct {
	redis storage.RedisClient
	ttl   time.Duration
}

// Session is one page session. Only the geohash of the last fix is kept.
type Session struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeen   time.Time `json:"last_seen"`
	IPAddress  string    `json:"ip_address"`
	Flashlight bool      `json:"flashlight"`
	Alarm      bool      `json:"alarm"`
	Phase      string    `json:"phase"`
	FixGeohash string    `json:"fix_geohash,omitempty"`
	Nearest    *Nearest  `json:"nearest,omitempty"`
}

type Nearest struct {
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance_km"`
}

func NewService(redisClient storage.RedisClient, ttl time.Duration) *Service {
	return &Service{
		redis: redisClient,
		ttl:   ttl,
	}
}

func (s *Service) Create(ctx context.Context, ipAddress string) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		LastSeen:  now,
		IPAddress: ipAddress,
		Phase:     controller.PhaseIdle.String(),
	}

	if err := s.save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	if err := s.redis.SAdd(ctx, activeSessionsKey, session.ID); err != nil {
		return nil, fmt.Errorf("failed to index session: %w", err)
	}

	return session, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := s.sessionKey(sessionID)
	data, err := s.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (s *Service) UpdateLastSeen(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	session.LastSeen = time.Now().UTC()
	return s.save(ctx, session)
}

// SaveSnapshot stores the controller state on the session and refreshes its TTL.
func (s *Service) SaveSnapshot(ctx context.Context, sessionID string, snap controller.Snapshot) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Flashlight = snap.Toggles.Flashlight
	session.Alarm = snap.Toggles.Alarm
	session.Phase = snap.Phase.String()
	session.LastSeen = time.Now().UTC()

	if snap.LastFix != nil {
		session.FixGeohash = snap.LastFix.Geohash(location.DefaultGeohashPrecision)
	}
	session.Nearest = nil
	if snap.Nearest != nil {
		session.Nearest = &Nearest{
			Name:       snap.Nearest.Station.Name,
			DistanceKm: location.RoundKm(snap.Nearest.DistanceKm),
		}
	}

	return s.save(ctx, session)
}

// Recorder binds a session to the controller's Recorder hook.
func (s *Service) Recorder(sessionID string) controller.Recorder {
	return &recorder{service: s, sessionID: sessionID}
}

type recorder struct {
	service   *Service
	sessionID string
}

func (r *recorder) RecordState(ctx context.Context, snap controller.Snapshot) error {
	return r.service.SaveSnapshot(ctx, r.sessionID, snap)
}

func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.SRem(ctx, activeSessionsKey, sessionID); err != nil {
		return err
	}
	key := s.sessionKey(sessionID)
	return s.redis.Del(ctx, key)
}

func (s *Service) Exists(ctx context.Context, sessionID string) (bool, error) {
	key := s.sessionKey(sessionID)
	count, err := s.redis.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PruneExpired drops index entries whose session record has expired and
// reports how many were removed.
func (s *Service) PruneExpired(ctx context.Context) (int, error) {
	ids, err := s.redis.SMembers(ctx, activeSessionsKey)
	if err != nil {
		return 0, fmt.Errorf("failed to list active sessions: %w", err)
	}

	removed := 0
	for _, id := range ids {
		exists, err := s.Exists(ctx, id)
		if err != nil {
			return removed, err
		}
		if exists {
			continue
		}
		if err := s.Delete(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// ActiveCount is the size of the active-session index.
func (s *Service) ActiveCount(ctx context.Context) (int64, error) {
	return s.redis.SCard(ctx, activeSessionsKey)
}

func (s *Service) save(ctx context.Context, session *Session) error {
	key := s.sessionKey(session.ID)
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.redis.Set(ctx, key, data, s.ttl)
}

func (s *Service) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}
