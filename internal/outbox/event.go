// Package outbox persists events in the same transaction as the business
// write and relays them to the bus afterwards, closing the dual-write gap
// between commit and publish.
package outbox

import (
	"encoding/json"
	"time"
)

type Event struct {
	ID          int64           `db:"id"`
	EventID     string          `db:"event_id"`
	Source      string          `db:"source"`
	DetailType  string          `db:"detail_type"`
	Detail      json.RawMessage `db:"detail"`
	BusName     string          `db:"bus_name"`
	CreatedAt   time.Time       `db:"created_at"`
	PublishedAt *time.Time      `db:"published_at"`
	Attempts    int64           `db:"attempts"`
	LastError   *string         `db:"last_error"`
}
