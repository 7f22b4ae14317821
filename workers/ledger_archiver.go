// workers/ledger_archiver.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"coin-task-desk/models"
	"coin-task-desk/stores"
)

// ObjectUploader stores a blob and returns where it can be fetched.
type ObjectUploader interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type ledgerSnapshot struct {
	GeneratedAt  string               `json:"generatedAt"`
	Count        int                  `json:"count"`
	Transactions []models.Transaction `json:"transactions"`
}

// LedgerArchiver uploads a full JSON copy of the ledger for offline audit.
type LedgerArchiver struct {
	ledger   stores.LedgerStore
	uploader ObjectUploader
	now      func() time.Time
}

func NewLedgerArchiver(ledger stores.LedgerStore, uploader ObjectUploader, now func() time.Time) *LedgerArchiver {
	if now == nil {
		now = time.Now
	}
	return &LedgerArchiver{ledger: ledger, uploader: uploader, now: now}
}

// Archive writes the snapshot and returns its URL.
func (a *LedgerArchiver) Archive(ctx context.Context) (string, error) {
	txns, err := a.ledger.GetAll(ctx)
	if err != nil {
		return "", fmt.Errorf("read ledger: %w", err)
	}
	now := a.now().UTC()
	body, err := json.Marshal(ledgerSnapshot{
		GeneratedAt:  now.Format(time.RFC3339),
		Count:        len(txns),
		Transactions: txns,
	})
	if err != nil {
		return "", fmt.Errorf("encode ledger snapshot: %w", err)
	}

	key := fmt.Sprintf("ledger/%s/ledger-%s.json", now.Format("2006/01/02"), now.Format("150405"))
	url, err := a.uploader.PutObject(ctx, key, "application/json", body)
	if err != nil {
		return "", err
	}
	log.Printf("[ARCHIVE] 📦 Archived %d transactions to %s", len(txns), url)
	return url, nil
}
