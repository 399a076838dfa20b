package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/discoverhealth/backend/pkg/errors"
)

// Resource represents a healthcare resource searchable by region
type Resource struct {
	ID              int64    `json:"id" db:"id"`
	Name            string   `json:"name" db:"name"`
	Category        string   `json:"category" db:"category"`
	Country         string   `json:"country" db:"country"`
	Region          string   `json:"region" db:"region"`
	Lat             float64  `json:"lat" db:"lat"`
	Lon             float64  `json:"lon" db:"lon"`
	Description     string   `json:"description" db:"description"`
	Recommendations int64    `json:"recommendations" db:"recommendations"`
	Reviews         []string `json:"reviews" db:"-"`
}

// MarshalJSON always renders reviews as an array.
func (r Resource) MarshalJSON() ([]byte, error) {
	type resourceJSON Resource
	out := resourceJSON(r)
	if out.Reviews == nil {
		out.Reviews = []string{}
	}
	return json.Marshal(out)
}

// Review is free-text feedback left by a user on a resource
type Review struct {
	ID         int64  `json:"id" db:"id"`
	ResourceID int64  `json:"resource_id" db:"resource_id"`
	UserID     int64  `json:"user_id" db:"user_id"`
	Text       string `json:"review" db:"review"`
}

// ResourceDistance pairs a resource with its distance from a search point
type ResourceDistance struct {
	*Resource
	DistanceKm float64 `json:"distance_km"`
}

// MarshalJSON flattens the resource and appends distance_km.
func (rd ResourceDistance) MarshalJSON() ([]byte, error) {
	if rd.Resource == nil {
		return []byte("null"), nil
	}
	base, err := json.Marshal(rd.Resource)
	if err != nil {
		return nil, err
	}
	dist, err := json.Marshal(rd.DistanceKm)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(base)+len(dist)+16)
	out = append(out, base[:len(base)-1]...)
	out = append(out, `,"distance_km":`...)
	out = append(out, dist...)
	out = append(out, '}')
	return out, nil
}

// Coordinate is a latitude or longitude as submitted by a client. Clients may
// send a JSON number or a numeric string; anything else is kept as invalid so
// validation can report it instead of the decoder failing.
type Coordinate struct {
	Value   float64
	Present bool
	Valid   bool
}

// NewCoordinate returns a present, valid coordinate.
func NewCoordinate(v float64) Coordinate {
	return Coordinate{Value: v, Present: true, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*c = Coordinate{}
		return nil
	}

	*c = Coordinate{Present: true}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	c.Value = v
	c.Valid = true
	return nil
}

// ResourceDraft holds unvalidated fields for a new resource
type ResourceDraft struct {
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Country     string     `json:"country"`
	Region      string     `json:"region"`
	Lat         Coordinate `json:"lat"`
	Lon         Coordinate `json:"lon"`
	Description string     `json:"description"`
}

// Build trims and validates the draft. Every missing field is reported in one
// validation error, ahead of any coordinate checks.
func (d ResourceDraft) Build() (*Resource, error) {
	r := &Resource{
		Name:        strings.TrimSpace(d.Name),
		Category:    strings.TrimSpace(d.Category),
		Country:     strings.TrimSpace(d.Country),
		Region:      strings.TrimSpace(d.Region),
		Description: strings.TrimSpace(d.Description),
	}

	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Category == "" {
		missing = append(missing, "category")
	}
	if r.Country == "" {
		missing = append(missing, "country")
	}
	if r.Region == "" {
		missing = append(missing, "region")
	}
	if !d.Lat.Present {
		missing = append(missing, "lat")
	}
	if !d.Lon.Present {
		missing = append(missing, "lon")
	}
	if r.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("Missing fields: " + strings.Join(missing, ", "))
	}

	if !d.Lat.Valid || !d.Lon.Valid {
		return nil, apperrors.NewValidationError("lat and lon must be valid numbers")
	}
	r.Lat = d.Lat.Value
	r.Lon = d.Lon.Value

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks a resource that is about to be stored
func (r *Resource) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", r.Name},
		{"category", r.Category},
		{"country", r.Country},
		{"region", r.Region},
		{"description", r.Description},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("Missing fields: " + strings.Join(missing, ", "))
	}

	if !isFinite(r.Lat) || !isFinite(r.Lon) {
		return apperrors.NewValidationError("lat and lon must be valid numbers")
	}
	if r.Lat < -90 || r.Lat > 90 {
		return apperrors.NewValidationError(fmt.Sprintf("lat must be between -90 and 90, got %g", r.Lat))
	}
	if r.Lon < -180 || r.Lon > 180 {
		return apperrors.NewValidationError(fmt.Sprintf("lon must be between -180 and 180, got %g", r.Lon))
	}
	return nil
}

// Normalize trims the text fields in place
func (r *Resource) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Country = strings.TrimSpace(r.Country)
	r.Region = strings.TrimSpace(r.Region)
	r.Description = strings.TrimSpace(r.Description)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
