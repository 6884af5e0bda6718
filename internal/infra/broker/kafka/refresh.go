package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/IBM/sarama"
)

// Deduper remembers consumed event ids.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Invalidator drops cached board contents for a campground.
type Invalidator interface {
	Invalidate(campgroundID string)
}

// reservationChange accepts both a CloudEvent envelope and the bare payload
// the data layer emits.
type reservationChange struct {
	ID           string `json:"id"`
	CampgroundID string `json:"campgroundId"`
	Data         *struct {
		CampgroundID string `json:"campgroundId"`
	} `json:"data"`
}

func (c reservationChange) campground() string {
	if c.CampgroundID != "" {
		return c.CampgroundID
	}
	if c.Data != nil {
		return c.Data.CampgroundID
	}
	return ""
}

// InventoryRefresh invalidates cached inventory whenever the data layer
// reports a reservation change. Without a campground id every board is
// invalidated.
type InventoryRefresh struct {
	Inbox   Deduper
	Targets Invalidator
	Logger  *slog.Logger
}

func (h *InventoryRefresh) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var change reservationChange
	if err := json.Unmarshal(msg.Value, &change); err != nil {
		if h.Logger != nil {
			h.Logger.WarnContext(ctx, "dropping undecodable reservation event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
		return nil
	}
	eventID := change.ID
	if eventID == "" {
		eventID = header(msg, "ce_id")
	}
	if eventID == "" {
		eventID = fmt.Sprintf("%s/%d/%s", msg.Topic, msg.Partition, strconv.FormatInt(msg.Offset, 10))
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, eventID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	campground := change.campground()
	h.Targets.Invalidate(campground)
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "inventory invalidated", "event_id", eventID, "campground_id", campground)
	}
	return nil
}

func header(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

var _ MessageHandler = (*InventoryRefresh)(nil)
