package config

// Version is the waymark binary version.
// Set at build time via: -ldflags "-X github.com/waymarkhq/waymark/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
