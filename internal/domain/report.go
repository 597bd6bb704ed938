package domain

import (
	"strconv"
	"strings"
	"time"

	"theftalert/internal/geo"
)

// ReportStatus is the lifecycle state of a theft report.
type ReportStatus string

const (
	StatusActive    ReportStatus = "Active"
	StatusRecovered ReportStatus = "Recovered"
	StatusClosed    ReportStatus = "Closed"
)

// Location is where the vehicle was reported stolen.
type Location struct {
	Lat      float64 `json:"latitude" yaml:"latitude"`
	Lng      float64 `json:"longitude" yaml:"longitude"`
	Locality string  `json:"locality,omitempty" yaml:"locality,omitempty"`
	Address  string  `json:"address,omitempty" yaml:"address,omitempty"`
}

// Point converts the location to a geo point.
func (l Location) Point() geo.Point {
	return geo.Point{Lat: l.Lat, Lng: l.Lng}
}

// VehicleReport is the payload of a report-created event.
type VehicleReport struct {
	ID           string       `json:"id"`
	Make         string       `json:"make"`
	Model        string       `json:"model"`
	Year         int          `json:"year"`
	LicensePlate string       `json:"licensePlate"`
	Status       ReportStatus `json:"status"`
	Location     Location     `json:"location"`
	CreatedAt    time.Time    `json:"createdAt,omitzero"`
}

// IsActive reports whether the report should drive notifications.
func (r VehicleReport) IsActive() bool {
	return r.Status == StatusActive
}

// Validate returns an ErrInvalidReport-tagged error naming the first missing
// or malformed field.
func (r VehicleReport) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return Wrap(ErrInvalidReport, "report", "validate", "id is required", nil)
	case strings.TrimSpace(r.Make) == "" || strings.TrimSpace(r.Model) == "":
		return Wrap(ErrInvalidReport, "report", "validate", "make and model are required", nil)
	case strings.TrimSpace(r.LicensePlate) == "":
		return Wrap(ErrInvalidReport, "report", "validate", "license plate is required", nil)
	case !r.Location.Point().Valid():
		return Wrap(ErrInvalidReport, "report", "validate", "location is out of range", nil)
	}
	return nil
}

// Vehicle renders the fixed "<year> <make> <model>" description.
func (r VehicleReport) Vehicle() string {
	parts := make([]string, 0, 3)
	if r.Year > 0 {
		parts = append(parts, strconv.Itoa(r.Year))
	}
	if m := strings.TrimSpace(r.Make); m != "" {
		parts = append(parts, m)
	}
	if m := strings.TrimSpace(r.Model); m != "" {
		parts = append(parts, m)
	}
	return strings.Join(parts, " ")
}
