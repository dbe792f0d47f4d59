package models_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/persistorai/navgraph/internal/models"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Mode
		wantErr bool
	}{
		{in: "", want: models.ModeReal},
		{in: "real", want: models.ModeReal},
		{in: " ALL ", want: models.ModeAll},
		{in: "bogus", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := models.ParseMode(tc.in)
			if tc.wantErr {
				if !errors.Is(err, models.ErrInvalidMode) {
					t.Fatalf("ParseMode(%q) err = %v, want ErrInvalidMode", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestInvalidNodeError_Is(t *testing.T) {
	var err error = &models.InvalidNodeError{NodeID: "P9"}

	if !errors.Is(err, models.ErrInvalidNode) {
		t.Fatal("expected InvalidNodeError to match ErrInvalidNode")
	}
	if !strings.Contains(err.Error(), "P9") {
		t.Errorf("error %q does not name the node", err.Error())
	}
}

func TestParcelClone_DeepCopiesConnections(t *testing.T) {
	orig := models.Parcel{
		ID:          "P1",
		Coordinates: []models.Point{{Lat: 1, Lng: 1}},
		Centroid:    &models.Point{Lat: 1, Lng: 1},
		BridgePoints: []models.BridgePoint{
			{Edge: models.Point{Lat: 1, Lng: 1}, Connection: &models.Connection{TargetParcelID: "P2"}},
		},
	}

	cp := orig.Clone()
	cp.BridgePoints[0].Connection.TargetParcelID = "P3"
	cp.Centroid.Lat = 9
	cp.Coordinates[0].Lat = 9

	if orig.BridgePoints[0].Connection.TargetParcelID != "P2" {
		t.Error("clone shares connection with original")
	}
	if orig.Centroid.Lat != 1 || orig.Coordinates[0].Lat != 1 {
		t.Error("clone shares geometry with original")
	}
}

func TestParcelUnmarshal_CenterAlias(t *testing.T) {
	var p models.Parcel
	if err := json.Unmarshal([]byte(`{"id":"P1","coordinates":[],"center":{"lat":45.1,"lng":12.2}}`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if p.ID != "P1" || p.Centroid == nil || *p.Centroid != (models.Point{Lat: 45.1, Lng: 12.2}) {
		t.Errorf("parcel = %+v, want centroid from center", p)
	}

	var q models.Parcel
	doc := `{"id":"P2","centroid":{"lat":1,"lng":2},"center":{"lat":3,"lng":4}}`
	if err := json.Unmarshal([]byte(doc), &q); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if q.Centroid == nil || q.Centroid.Lat != 1 {
		t.Errorf("centroid = %+v, want the centroid key to win", q.Centroid)
	}
}
