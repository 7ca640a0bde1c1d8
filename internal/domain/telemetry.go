package domain

type VesselStatus string

const (
	StatusNormal   VesselStatus = "NORMAL"
	StatusWarning  VesselStatus = "WARNING"
	StatusCritical VesselStatus = "CRITICAL"
)

// TelemetryReading is one telemetry packet from a vessel. A reading is
// uniquely identified by (ShipID, Timestamp); a second write with the same
// pair silently overwrites the first.
type TelemetryReading struct {
	ShipID      string       `json:"shipId" validate:"required,min=1"`
	Timestamp   string       `json:"timestamp" validate:"required,iso8601"`
	Temperature float64      `json:"temperature"`
	FuelLevel   float64      `json:"fuelLevel" validate:"gte=0,lte=100"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Status      VesselStatus `json:"status" validate:"required,oneof=NORMAL WARNING CRITICAL"`
}
