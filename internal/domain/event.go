package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	SourceTelemetry = "nexus.marine.telemetry"
	SourceOrders    = "nexus.marine.orders"

	DetailTypeCriticalAlert = "Marine.CriticalAlert"
	DetailTypeOrderCreated  = "Order.Created"
)

// ISO8601Millis is the timestamp layout used on the wire and in the stores.
const ISO8601Millis = "2006-01-02T15:04:05.000Z07:00"

// Event is a routable fact published to the bus. Routing looks only at
// Source and DetailType; Detail is opaque to the router.
type Event struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	DetailType string          `json:"detail-type"`
	Time       string          `json:"time"`
	Detail     json.RawMessage `json:"detail"`

	// BusName addresses the target bus on publish. It is not part of the
	// delivered payload.
	BusName string `json:"-"`
}

// NewEvent marshals detail and stamps id, time and the routing tags.
func NewEvent(busName, source, detailType string, detail any) (Event, error) {
	payload, err := json.Marshal(detail)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:         uuid.NewString(),
		Source:     source,
		DetailType: detailType,
		Time:       time.Now().UTC().Format(ISO8601Millis),
		Detail:     payload,
		BusName:    busName,
	}, nil
}

// CriticalAlert is the detail payload of a Marine.CriticalAlert event.
type CriticalAlert struct {
	ShipID      string  `json:"shipId"`
	Temperature float64 `json:"temperature"`
	Timestamp   string  `json:"timestamp"`
	Message     string  `json:"message"`
}
