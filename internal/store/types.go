package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of question dates.
const DateLayout = "2006-01-02"

// ParseDate checks that s is a calendar date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// Hint is one categorized translation hint.
type Hint struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// QuestionRecord is a persisted daily question. (QuestionDate, ZH) is
// unique and records are never updated.
type QuestionRecord struct {
	ID           string          `json:"id"`
	QuestionDate string          `json:"questionDate"`
	ZH           string          `json:"zh"`
	ReferenceEn  string          `json:"referenceEn"`
	Difficulty   int             `json:"difficulty"`
	Tags         []string        `json:"tags"`
	Hints        []Hint          `json:"hints"`
	ReviewNote   string          `json:"reviewNote,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	Model        string          `json:"model"`
	PromptHash   string          `json:"promptHash"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// SaveSummary reports the outcome of SaveMany.
type SaveSummary struct {
	Inserted   int
	Duplicates int
}

// DateSummary aggregates one question date.
type DateSummary struct {
	Date                 string `json:"date"`
	QuestionCount        int    `json:"questionCount"`
	DeliveredDeviceCount int    `json:"deliveredDeviceCount"`
}

// DeliveryMode decides which records a device may still claim.
type DeliveryMode string

const (
	// PerDevice hands every record to every device once.
	PerDevice DeliveryMode = "per-device"
	// Exclusive hands each record to at most one device.
	Exclusive DeliveryMode = "exclusive"
)

// ParseDeliveryMode maps a config value to a mode. Empty means PerDevice.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch DeliveryMode(s) {
	case "", PerDevice:
		return PerDevice, nil
	case Exclusive:
		return Exclusive, nil
	}
	return "", fmt.Errorf("unknown delivery mode %q", s)
}

// QuestionStore persists question records and delivery claims.
type QuestionStore interface {
	// SaveMany inserts records, counting (date, zh) collisions as duplicates.
	SaveMany(ctx context.Context, records []QuestionRecord) (SaveSummary, error)

	// Reserve claims up to count unclaimed records of date for deviceID in
	// creation order, atomically, and returns the records it claimed.
	Reserve(ctx context.Context, date string, count int, deviceID string) ([]QuestionRecord, error)

	// Remaining counts records of date that deviceID could still claim.
	Remaining(ctx context.Context, date, deviceID string) (int, error)

	// ResetDeliveries deletes deviceID's claims for date and returns how
	// many were removed.
	ResetDeliveries(ctx context.Context, date, deviceID string) (int, error)

	// RecentSummary aggregates the most recent dates, newest first.
	RecentSummary(ctx context.Context, limit int) ([]DateSummary, error)

	// ExistingIDs returns the ids already stored for date.
	ExistingIDs(ctx context.Context, date string) (map[string]struct{}, error)

	Close() error
}
