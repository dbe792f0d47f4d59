// Package models defines data types for the parcel navigation graph.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the point as "lat,lng" with six decimals (~0.1 m).
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Parcel is a land parcel record as held by the parcel store.
// It is a node in the navigation graph.
type Parcel struct {
	ID             string        `json:"id"`
	Coordinates    []Point       `json:"coordinates"`
	Centroid       *Point        `json:"centroid,omitempty"`
	BridgePoints   []BridgePoint `json:"bridgePoints,omitempty"`
	CanalPoints    []Point       `json:"canalPoints,omitempty"`
	BuildingPoints []Point       `json:"buildingPoints,omitempty"`
	UpdatedAt      *time.Time    `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts "center" as an alias for "centroid"; older records
// use that key.
func (p *Parcel) UnmarshalJSON(data []byte) error {
	type plain Parcel

	aux := struct {
		*plain
		Center *Point `json:"center,omitempty"`
	}{plain: (*plain)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if p.Centroid == nil && aux.Center != nil {
		p.Centroid = aux.Center
	}

	return nil
}

// BridgePoint is a parcel-boundary coordinate eligible for a bridge.
// Connection is nil until the spatial matcher pairs it.
type BridgePoint struct {
	Edge       Point       `json:"edge"`
	Connection *Connection `json:"connection,omitempty"`
}

// Matched reports whether the point already carries a connection.
func (b *BridgePoint) Matched() bool {
	return b.Connection != nil
}

// Connection links a bridge point to a bridge point on another parcel.
type Connection struct {
	TargetParcelID   string  `json:"targetParcelId"`
	TargetPointIndex int     `json:"targetPointIndex"`
	TargetPoint      Point   `json:"targetPoint"`
	Distance         float64 `json:"distance"`
}

// CanalLink is a water connection between two parcels supplied by the canal registry.
// A zero Distance means the builder derives it from the parcel centroids.
type CanalLink struct {
	ID           string  `json:"id"`
	FromParcelID string  `json:"fromParcelId"`
	ToParcelID   string  `json:"toParcelId"`
	Distance     float64 `json:"distance,omitempty"`
}

// Dock is a public dock from the dock registry. Docks that share a canal
// segment are reachable from one another by water.
type Dock struct {
	ID           string `json:"id"`
	ParcelID     string `json:"parcelId"`
	Position     Point  `json:"position"`
	CanalSegment string `json:"canalSegment"`
}

// Clone returns a deep copy of the parcel so callers can mutate bridge
// connections without touching a shared record.
func (p *Parcel) Clone() Parcel {
	out := *p

	out.Coordinates = append([]Point(nil), p.Coordinates...)
	out.CanalPoints = append([]Point(nil), p.CanalPoints...)
	out.BuildingPoints = append([]Point(nil), p.BuildingPoints...)

	if p.Centroid != nil {
		c := *p.Centroid
		out.Centroid = &c
	}

	if p.BridgePoints != nil {
		out.BridgePoints = make([]BridgePoint, len(p.BridgePoints))
		for i, bp := range p.BridgePoints {
			out.BridgePoints[i] = bp
			if bp.Connection != nil {
				c := *bp.Connection
				out.BridgePoints[i].Connection = &c
			}
		}
	}

	return out
}
