package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for lookups and queries.
var (
	ErrParcelNotFound = errors.New("parcel not found")
	ErrInvalidNode    = errors.New("node not in graph")
	ErrNotLoaded      = errors.New("graph not loaded")
	ErrInvalidMode    = errors.New("invalid pathfinding mode")
)

// InvalidNodeError names the node id a pathfinding query could not resolve.
type InvalidNodeError struct {
	NodeID string
}

func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidNode, e.NodeID)
}

// Unwrap lets errors.Is match ErrInvalidNode.
func (e *InvalidNodeError) Unwrap() error { return ErrInvalidNode }

// DataError records a parcel skipped for malformed or missing geometry.
type DataError struct {
	ParcelID string
	Reason   string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("parcel %q: %s", e.ParcelID, e.Reason)
}

// ReferenceError records a connection whose target is not a graph node.
type ReferenceError struct {
	ParcelID string
	TargetID string
	Kind     EdgeKind
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s connection %q -> %q: target not in graph", e.Kind, e.ParcelID, e.TargetID)
}
