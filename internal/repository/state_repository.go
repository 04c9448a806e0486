package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/repository/base"
)

type StateRepository struct {
	db base.DB
}

func NewStateRepository(db base.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Ensure загружает состояние сессии, создавая пустое при первом обращении.
// Идемпотентно: повторный вызов для той же сессии возвращает ту же строку,
// дубликаты невозможны благодаря ON CONFLICT DO NOTHING по уникальному ключу.
func (r *StateRepository) Ensure(ctx context.Context, businessID int64, channel, sessionKey string) (*model.ConversationState, error) {
	insert := `
		INSERT INTO conversation_states (business_id, channel, session_key, last_intent, context)
		VALUES ($1, $2, $3, '', '{}')
		ON CONFLICT (business_id, channel, session_key) DO NOTHING
	`

	if _, err := r.db.Exec(ctx, insert, businessID, channel, sessionKey); err != nil {
		return nil, fmt.Errorf("ensure conversation state: %w", err)
	}

	query := `
		SELECT id, business_id, channel, session_key, last_intent, context, created_at, updated_at
		FROM conversation_states
		WHERE business_id = $1 AND channel = $2 AND session_key = $3
	`

	var (
		st  model.ConversationState
		raw []byte
	)
	err := r.db.QueryRow(ctx, query, businessID, channel, sessionKey).Scan(
		&st.ID,
		&st.BusinessID,
		&st.Channel,
		&st.SessionKey,
		&st.LastIntent,
		&raw,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("load conversation state: %w", err)
	}

	// Контекст из прошлых ходов не считается доверенным: битый json
	// превращается в пустой контекст, а не в ошибку хода.
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &st.Context); err != nil {
			st.Context = model.AppointmentContext{}
		}
	}

	return &st, nil
}

// Patch полностью перезаписывает контекст состояния.
// Слияние со старым контекстом — обязанность вызывающего.
func (r *StateRepository) Patch(ctx context.Context, stateID int64, lastIntent string, c model.AppointmentContext) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}

	query := `
		UPDATE conversation_states
		SET last_intent = $2, context = $3, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, stateID, lastIntent, raw)
	if err != nil {
		return fmt.Errorf("patch conversation state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation state not found")
	}

	return nil
}

// DeleteStale чистит состояния сессий без активности дольше порога.
func (r *StateRepository) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM conversation_states WHERE updated_at < $1`

	result, err := r.db.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete stale conversation states: %w", err)
	}

	return result.RowsAffected(), nil
}

// Clear удаляет состояние завершённой или брошенной сессии.
func (r *StateRepository) Clear(ctx context.Context, businessID int64, channel, sessionKey string) error {
	query := `
		DELETE FROM conversation_states
		WHERE business_id = $1 AND channel = $2 AND session_key = $3
	`

	if _, err := r.db.Exec(ctx, query, businessID, channel, sessionKey); err != nil {
		return fmt.Errorf("clear conversation state: %w", err)
	}

	return nil
}
