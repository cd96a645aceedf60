// internal/store/archive.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"interview-engine/internal/common/logger"
	"interview-engine/internal/models"
)

// TranscriptArchive indexes finished sessions into Elasticsearch for later
// search and analytics. Archiving is best effort and never blocks or fails
// the live session.
type TranscriptArchive struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

type archiveDocument struct {
	SessionID  string                    `json:"sessionId"`
	AccountID  string                    `json:"accountId"`
	Transcript []models.ConversationTurn `json:"transcript"`
	State      models.WorkflowState      `json:"state"`
	Report     *models.FeedbackReport    `json:"report,omitempty"`
	ArchivedAt time.Time                 `json:"archivedAt"`
}

func NewTranscriptArchive(client *elasticsearch.Client, index string, log logger.Logger) *TranscriptArchive {
	return &TranscriptArchive{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "transcript-archive"}),
	}
}

// Archive indexes the session document keyed by session id.
func (a *TranscriptArchive) Archive(ctx context.Context, sessionID, accountID string, transcript []models.ConversationTurn, state models.WorkflowState, report *models.FeedbackReport) error {
	doc := archiveDocument{
		SessionID:  sessionID,
		AccountID:  accountID,
		Transcript: transcript,
		State:      state,
		Report:     report,
		ArchivedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal archive document: %w", err)
	}

	res, err := a.client.Index(
		a.index,
		bytes.NewReader(data),
		a.client.Index.WithContext(ctx),
		a.client.Index.WithDocumentID(sessionID),
	)
	if err != nil {
		return fmt.Errorf("index session %s: %w", sessionID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index session %s: %s", sessionID, res.Status())
	}

	a.logger.Debug("session archived", map[string]interface{}{
		"sessionId": sessionID,
		"index":     a.index,
	})
	return nil
}
