package config

// Version is the navgraph binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/navgraph/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
