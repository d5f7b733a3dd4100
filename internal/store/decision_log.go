package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfcastellanos/negobot/internal/domain"
)

type DecisionLogStore struct {
	db *pgxpool.Pool
}

func NewDecisionLogStore(db *pgxpool.Pool) *DecisionLogStore {
	return &DecisionLogStore{db: db}
}

func (s *DecisionLogStore) Record(ctx context.Context, rec *domain.DecisionRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO decision_log (
			id, conversation_id, current_state, user_message,
			label, label_confidence, detected_condition, method,
			next_state, confidence, elapsed_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.ConversationID, rec.CurrentState, rec.UserMessage,
		rec.Label, rec.LabelConfidence, rec.DetectedCondition, string(rec.Method),
		rec.NextState, rec.Confidence, rec.Elapsed.Milliseconds(), rec.CreatedAt,
	)
	return err
}
