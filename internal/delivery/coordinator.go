// Package delivery hands stored questions to devices, each at most once.
package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dailyq/dailyq/internal/store"
)

// InvalidDeviceIDError is returned for a blank device id.
type InvalidDeviceIDError struct {
	DeviceID string
}

func (e *InvalidDeviceIDError) Error() string {
	return fmt.Sprintf("invalid device id %q", e.DeviceID)
}

// DeliveredQuestion is the client view of a reserved question.
type DeliveredQuestion struct {
	ID          string       `json:"id"`
	ZH          string       `json:"zh"`
	ReferenceEn string       `json:"referenceEn"`
	Hints       []store.Hint `json:"hints"`
	ReviewNote  string       `json:"reviewNote,omitempty"`
	Tags        []string     `json:"tags"`
	Difficulty  int          `json:"difficulty"`
}

// Reservation is the outcome of one Reserve call. Delivered == 0 means
// the device has nothing left for the date.
type Reservation struct {
	Date      string              `json:"date"`
	DeviceID  string              `json:"deviceId"`
	Requested int                 `json:"requested"`
	Delivered int                 `json:"delivered"`
	Remaining int                 `json:"remaining"`
	Questions []DeliveredQuestion `json:"questions"`
}

// Coordinator serializes reserve and reset per (date, device) and lets the
// store make each claim atomic.
type Coordinator struct {
	store  store.QuestionStore
	locker Locker
	log    zerolog.Logger
}

// NewCoordinator wires a coordinator. A nil locker means a LocalLocker.
func NewCoordinator(s store.QuestionStore, locker Locker, logger zerolog.Logger) *Coordinator {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Coordinator{
		store:  s,
		locker: locker,
		log:    logger.With().Str("component", "delivery").Logger(),
	}
}

// Reserve claims up to count questions of date for deviceID. With
// forceReset the device's earlier claims for date are dropped first.
func (c *Coordinator) Reserve(ctx context.Context, deviceID, date string, count int, forceReset bool) (*Reservation, error) {
	deviceID, err := checkArgs(deviceID, date)
	if err != nil {
		return nil, err
	}

	unlock, err := c.locker.Lock(ctx, lockKey(date, deviceID))
	if err != nil {
		return nil, fmt.Errorf("reserve: %w", err)
	}
	defer unlock()

	if forceReset {
		n, err := c.store.ResetDeliveries(ctx, date, deviceID)
		if err != nil {
			return nil, err
		}
		c.log.Info().Str("device", deviceID).Str("date", date).Int("cleared", n).Msg("claims reset before reserve")
	}

	records, err := c.store.Reserve(ctx, date, count, deviceID)
	if err != nil {
		return nil, err
	}
	left, err := c.store.Remaining(ctx, date, deviceID)
	if err != nil {
		return nil, err
	}

	res := &Reservation{
		Date:      date,
		DeviceID:  deviceID,
		Requested: count,
		Delivered: len(records),
		Remaining: left,
		Questions: make([]DeliveredQuestion, 0, len(records)),
	}
	for _, r := range records {
		res.Questions = append(res.Questions, toDelivered(r))
	}

	c.log.Debug().
		Str("device", deviceID).
		Str("date", date).
		Int("requested", count).
		Int("delivered", res.Delivered).
		Int("remaining", left).
		Msg("reserved")
	return res, nil
}

// Remaining reports how many questions of date deviceID can still get.
func (c *Coordinator) Remaining(ctx context.Context, date, deviceID string) (int, error) {
	deviceID, err := checkArgs(deviceID, date)
	if err != nil {
		return 0, err
	}
	unlock, err := c.locker.Lock(ctx, lockKey(date, deviceID))
	if err != nil {
		return 0, fmt.Errorf("remaining: %w", err)
	}
	defer unlock()

	return c.store.Remaining(ctx, date, deviceID)
}

// Reset drops deviceID's claims for date and returns how many it removed.
func (c *Coordinator) Reset(ctx context.Context, date, deviceID string) (int, error) {
	deviceID, err := checkArgs(deviceID, date)
	if err != nil {
		return 0, err
	}
	unlock, err := c.locker.Lock(ctx, lockKey(date, deviceID))
	if err != nil {
		return 0, fmt.Errorf("reset: %w", err)
	}
	defer unlock()

	n, err := c.store.ResetDeliveries(ctx, date, deviceID)
	if err != nil {
		return 0, err
	}
	c.log.Info().Str("device", deviceID).Str("date", date).Int("cleared", n).Msg("claims reset")
	return n, nil
}

func checkArgs(deviceID, date string) (string, error) {
	trimmed := strings.TrimSpace(deviceID)
	if trimmed == "" {
		return "", &InvalidDeviceIDError{DeviceID: deviceID}
	}
	if _, err := store.ParseDate(date); err != nil {
		return "", err
	}
	return trimmed, nil
}

func lockKey(date, deviceID string) string {
	return date + "|" + deviceID
}

func toDelivered(r store.QuestionRecord) DeliveredQuestion {
	return DeliveredQuestion{
		ID:          r.ID,
		ZH:          r.ZH,
		ReferenceEn: r.ReferenceEn,
		Hints:       r.Hints,
		ReviewNote:  r.ReviewNote,
		Tags:        r.Tags,
		Difficulty:  r.Difficulty,
	}
}
