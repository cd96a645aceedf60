// internal/store/session_store.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xeipuuv/gojsonschema"

	apperrors "interview-engine/internal/common/errors"
	"interview-engine/internal/common/logger"
	"interview-engine/internal/models"
)

const sessionTTL = 24 * time.Hour

// stateSchema validates persisted workflow state on load. Only documents with
// the current schemaVersion and all progress fields pass.
var stateSchema = map[string]interface{}{
	"type": "object",
	"required": []interface{}{
		"schemaVersion", "currentPhaseId", "questionCounts",
		"fulfilled", "failedPhases", "finished", "totalQuestionsAsked",
	},
	"properties": map[string]interface{}{
		"schemaVersion":       map[string]interface{}{"type": "integer"},
		"currentPhaseId":      map[string]interface{}{"type": "string"},
		"questionCounts":      map[string]interface{}{"type": "object"},
		"fulfilled":           map[string]interface{}{"type": "object"},
		"failedPhases":        map[string]interface{}{"type": "array"},
		"finished":            map[string]interface{}{"type": "boolean"},
		"totalQuestionsAsked": map[string]interface{}{"type": "integer", "minimum": 0},
	},
}

// SessionStore persists workflow state, transcript history and feedback
// reports in Redis.
type SessionStore struct {
	client *redis.Client
	logger logger.Logger
}

func NewSessionStore(client *redis.Client, log logger.Logger) *SessionStore {
	return &SessionStore{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "session-store"}),
	}
}

func stateKey(sessionID string) string    { return fmt.Sprintf("session:%s:state", sessionID) }
func historyKey(sessionID string) string  { return fmt.Sprintf("session:%s:history", sessionID) }
func feedbackKey(sessionID string) string { return fmt.Sprintf("session:%s:feedback", sessionID) }

// SaveState writes the workflow state snapshot. The stored document always
// carries the current schema version.
func (s *SessionStore) SaveState(ctx context.Context, sessionID string, state models.WorkflowState) error {
	state.SchemaVersion = models.SchemaVersion

	data, err := json.Marshal(state)
	if err != nil {
		return apperrors.NewPersistenceFailedError(sessionID, err)
	}

	if err := s.client.Set(ctx, stateKey(sessionID), data, sessionTTL).Err(); err != nil {
		return apperrors.NewPersistenceFailedError(sessionID, err)
	}
	return nil
}

// LoadState reads and validates a persisted state snapshot. Documents that do
// not match the versioned schema are rejected rather than patched up.
func (s *SessionStore) LoadState(ctx context.Context, sessionID string) (*models.WorkflowState, error) {
	data, err := s.client.Get(ctx, stateKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailedError(sessionID, err)
	}

	if err := validateState(sessionID, data); err != nil {
		return nil, err
	}

	var state models.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, apperrors.NewStateSchemaInvalidError(sessionID, err.Error())
	}
	if state.SchemaVersion != models.SchemaVersion {
		return nil, apperrors.NewStateSchemaInvalidError(sessionID,
			fmt.Sprintf("schemaVersion %d, expected %d", state.SchemaVersion, models.SchemaVersion))
	}

	return &state, nil
}

func validateState(sessionID string, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(stateSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return apperrors.NewStateSchemaInvalidError(sessionID, err.Error())
	}
	if !result.Valid() {
		details := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			details[i] = desc.String()
		}
		return apperrors.NewStateSchemaInvalidError(sessionID, fmt.Sprintf("%v", details))
	}
	return nil
}

// AppendTurn appends one transcript entry. History is append-only; there is
// no operation to rewrite or delete turns.
func (s *SessionStore) AppendTurn(ctx context.Context, sessionID string, turn models.ConversationTurn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return apperrors.NewPersistenceFailedError(sessionID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, historyKey(sessionID), data)
	pipe.Expire(ctx, historyKey(sessionID), sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewPersistenceFailedError(sessionID, err)
	}
	return nil
}

// History returns the full ordered transcript.
func (s *SessionStore) History(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	entries, err := s.client.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, apperrors.NewPersistenceFailedError(sessionID, err)
	}

	turns := make([]models.ConversationTurn, 0, len(entries))
	for _, entry := range entries {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			return nil, apperrors.NewPersistenceFailedError(sessionID, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// SaveFeedback stores the immutable report. A report already present is never
// overwritten.
func (s *SessionStore) SaveFeedback(ctx context.Context, report *models.FeedbackReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return apperrors.NewPersistenceFailedError(report.SessionID, err)
	}

	ok, err := s.client.SetNX(ctx, feedbackKey(report.SessionID), data, sessionTTL).Result()
	if err != nil {
		return apperrors.NewPersistenceFailedError(report.SessionID, err)
	}
	if !ok {
		s.logger.Warn("feedback report already exists, keeping original", map[string]interface{}{
			"sessionId": report.SessionID,
		})
	}
	return nil
}

// LoadFeedback reads a stored report.
func (s *SessionStore) LoadFeedback(ctx context.Context, sessionID string) (*models.FeedbackReport, error) {
	data, err := s.client.Get(ctx, feedbackKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceFailedError(sessionID, err)
	}

	var report models.FeedbackReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, apperrors.NewPersistenceFailedError(sessionID, err)
	}
	return &report, nil
}
