// Package redis persists completed appliance cycles so the status API can
// serve recent history across restarts. The store is optional: the monitor
// runs fine without it.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/hometools/internal/appliance"
	"github.com/MrSnakeDoc/hometools/internal/logger"
)

const (
	historyKey = "appliancemon:cycles"
	historyMax = 100                 // list is trimmed to this many records
	historyTTL = 30 * 24 * time.Hour // refreshed on every write
)

// CycleRecord is the stored form of a completed cycle.
type CycleRecord struct {
	ID              string    `json:"id"`
	Appliance       string    `json:"appliance"`
	DurationSeconds float64   `json:"duration_seconds"`
	FinalPower      float64   `json:"final_power_w"`
	CompletedAt     time.Time `json:"completed_at"`
}

// History stores cycle records in a capped Redis list, newest first.
type History struct {
	client *goredis.Client
	logger logger.Logger
}

func NewHistory(client *goredis.Client, log logger.Logger) *History {
	return &History{client: client, logger: log}
}

// SaveCycle appends an event to the history list and trims it. Each record
// gets a fresh UUID.
func (h *History) SaveCycle(ctx context.Context, event *appliance.CycleEvent) error {
	record := CycleRecord{
		ID:              uuid.NewString(),
		Appliance:       event.Appliance,
		DurationSeconds: event.Duration.Seconds(),
		FinalPower:      event.FinalPower,
		CompletedAt:     event.CompletedAt,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode cycle record: %w", err)
	}

	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, historyMax-1)
	pipe.Expire(ctx, historyKey, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store cycle record: %w", err)
	}

	h.logger.Debug("cycle record stored",
		logger.String("id", record.ID),
		logger.String("appliance", record.Appliance))
	return nil
}

// RecentCycles returns up to n records, newest first. Records that fail to
// decode are skipped with a warning rather than poisoning the response.
func (h *History) RecentCycles(ctx context.Context, n int) ([]CycleRecord, error) {
	if n <= 0 || n > historyMax {
		n = historyMax
	}

	raw, err := h.client.LRange(ctx, historyKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cycle history: %w", err)
	}

	records := make([]CycleRecord, 0, len(raw))
	for _, item := range raw {
		var record CycleRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			h.logger.Warn("skipping undecodable cycle record", logger.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
