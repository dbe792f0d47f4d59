package models

import "time"

// GraphMetadata summarizes a built graph.
type GraphMetadata struct {
	TotalParcels       int       `json:"totalParcels"`
	ParcelsWithBridges int       `json:"parcelsWithBridges"`
	TotalConnections   int       `json:"totalConnections"`
	GeneratedAt        time.Time `json:"generatedAt"`
}

// EnhancedConnection is one directed entry of the enhanced adjacency view.
type EnhancedConnection struct {
	TargetID    string   `json:"targetId"`
	SourcePoint Point    `json:"sourcePoint"`
	TargetPoint Point    `json:"targetPoint"`
	Distance    float64  `json:"distance"`
	Kind        EdgeKind `json:"kind"`
}

// EnhancedNode is a node of the enhanced adjacency view.
type EnhancedNode struct {
	Centroid    Point                `json:"centroid"`
	Connections []EnhancedConnection `json:"connections"`
}

// GraphExport is the cacheable persistence format of a graph snapshot.
type GraphExport struct {
	Simple   map[string][]string     `json:"simple"`
	Enhanced map[string]EnhancedNode `json:"enhanced"`
	Metadata GraphMetadata           `json:"metadata"`
	Epoch    uint64                  `json:"epoch"`
}

// PathStatus is the outcome of a pathfinding query.
type PathStatus string

const (
	PathFound       PathStatus = "found"
	PathUnreachable PathStatus = "unreachable"
)

// PathResult is returned by a pathfinding query on valid endpoints.
type PathResult struct {
	Status        PathStatus `json:"status"`
	Nodes         []string   `json:"nodes,omitempty"`
	TotalDistance float64    `json:"totalDistance"`
	Hops          int        `json:"hops"`
	Mode          Mode       `json:"mode"`
	Epoch         uint64     `json:"epoch"`
}

// Found reports whether a path was found.
func (r *PathResult) Found() bool { return r.Status == PathFound }

// NodesByType breaks graph nodes down by category.
type NodesByType struct {
	WithBridges     int `json:"withBridges"`
	WithoutBridges  int `json:"withoutBridges"`
	WithCanalAccess int `json:"withCanalAccess"`
	Isolated        int `json:"isolated"`
}

// ComponentSummary describes one connected component by size and a sample member.
type ComponentSummary struct {
	Size       int    `json:"size"`
	SampleNode string `json:"sampleNode"`
}

// ComponentSizes summarizes component sizes without listing every component.
type ComponentSizes struct {
	Count             int                `json:"count"`
	Min               int                `json:"min"`
	Max               int                `json:"max"`
	Avg               float64            `json:"avg"`
	LargestComponents []ComponentSummary `json:"largestComponents"`
}

// Diagnostics is the connectivity report for one snapshot and mode.
// Error and Partial are set when the analysis was cut short.
type Diagnostics struct {
	TotalNodes           int            `json:"totalNodes"`
	TotalEdges           int            `json:"totalEdges"`
	NodesByType          NodesByType    `json:"nodesByType"`
	ConnectedComponents  int            `json:"connectedComponents"`
	ComponentSizes       ComponentSizes `json:"componentSizes"`
	PathfindingMode      Mode           `json:"pathfindingMode"`
	PolygonsLoaded       bool           `json:"polygonsLoaded"`
	PolygonCount         int            `json:"polygonCount"`
	CanalNetworkSegments int            `json:"canalNetworkSegments"`
	Epoch                uint64         `json:"epoch"`
	Partial              bool           `json:"partial,omitempty"`
	Error                string         `json:"error,omitempty"`
}
