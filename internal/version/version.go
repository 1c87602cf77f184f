// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - HTTP API, MQTT publishing, SQLite preference and sun-time cache
// 0.2.0 - Smart mode: gpsd/IP location, weather providers, sunrise-sunset lookup
// 0.1.0 - Initial release: animated sky scene, manual weather and time of day
