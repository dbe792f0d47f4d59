// Package graphtest builds small parcel fixtures for tests.
package graphtest

import (
	"strconv"

	"github.com/persistorai/navgraph/internal/geo"
	"github.com/persistorai/navgraph/internal/models"
)

// half is half the side of a fixture square in degrees (~11 m of latitude).
const half = 0.0001

// Square returns a parcel with a small square ring centred on (lat, lng) and
// a single unmatched bridge point on its northern edge.
func Square(id string, lat, lng float64) models.Parcel {
	return models.Parcel{
		ID: id,
		Coordinates: []models.Point{
			{Lat: lat - half, Lng: lng - half},
			{Lat: lat - half, Lng: lng + half},
			{Lat: lat + half, Lng: lng + half},
			{Lat: lat + half, Lng: lng - half},
		},
		BridgePoints: []models.BridgePoint{{Edge: models.Point{Lat: lat + half, Lng: lng}}},
	}
}

// Bridge records a symmetric connection between the first bridge points of
// parcels a and b inside ps. Both parcels must exist in ps.
func Bridge(ps []models.Parcel, a, b string) {
	ai, bi := find(ps, a), find(ps, b)
	pa, pb := ps[ai].BridgePoints[0].Edge, ps[bi].BridgePoints[0].Edge
	d := geo.Distance(pa, pb)

	ps[ai].BridgePoints[0].Connection = &models.Connection{TargetParcelID: b, TargetPoint: pb, Distance: d}
	ps[bi].BridgePoints[0].Connection = &models.Connection{TargetParcelID: a, TargetPoint: pa, Distance: d}
}

// Row returns n parcels "P1".."Pn" spaced ~20 m apart along a parallel, so
// neighbouring bridge points fall inside the default matching threshold.
func Row(n int) []models.Parcel {
	out := make([]models.Parcel, n)
	for i := range out {
		out[i] = Square(id(i+1), 45.0, 12.0+float64(i)*0.00025)
	}

	return out
}

func id(i int) string {
	return "P" + strconv.Itoa(i)
}

func find(ps []models.Parcel, id string) int {
	for i := range ps {
		if ps[i].ID == id {
			return i
		}
	}

	panic("graphtest: unknown parcel " + id)
}
