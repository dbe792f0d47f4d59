package models

import "time"

// DefaultMaxBridgeDistance is the bridge matching threshold in meters. The
// graph builder rejects stored connections longer than it.
const DefaultMaxBridgeDistance = 25.0

// DefaultTopComponents is how many of the largest components a diagnostics
// report lists.
const DefaultTopComponents = 5

// DefaultDiagnosticsTimeout bounds a single connectivity analysis.
const DefaultDiagnosticsTimeout = 10 * time.Second
