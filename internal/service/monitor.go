package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lernio/lernio-backend/internal/config"
)

// MonitorEvent is one live session event published to the assessment's
// monitor channel and fanned out to connected WebSocket observers.
type MonitorEvent struct {
	Type          string    `json:"type"` // session_started | answer_submitted | session_paused | session_resumed | session_completed | session_timeout
	SessionID     uuid.UUID `json:"session_id"`
	AssessmentID  uuid.UUID `json:"assessment_id"`
	UserID        uuid.UUID `json:"user_id"`
	Device        string    `json:"device,omitempty"`
	AnsweredCount int       `json:"answered_count,omitempty"`
	ScorePercent  *float64  `json:"score_percent,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// MonitorPublisher publishes session events over Redis PubSub so every
// server instance can stream them to its own WebSocket observers.
type MonitorPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewMonitorPublisher creates a new MonitorPublisher.
func NewMonitorPublisher(rdb *redis.Client, log zerolog.Logger) *MonitorPublisher {
	return &MonitorPublisher{
		rdb: rdb,
		log: log.With().Str("component", "monitor").Logger(),
	}
}

// Publish sends an event to the assessment's monitor channel. Publishing
// is best-effort: a failure is logged, never propagated.
func (p *MonitorPublisher) Publish(ctx context.Context, event MonitorEvent) {
	event.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Msg("Failed to marshal monitor event")
		return
	}
	channel := config.CacheKey.AssessmentMonitorChannel(event.AssessmentID.String())
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("channel", channel).Msg("Failed to publish monitor event")
	}
}
