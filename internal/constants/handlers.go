// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Handler constants
const (
	// DefaultSightingLimit is the default number of unknown sightings to list
	DefaultSightingLimit = 100

	// DefaultCourse is recorded when a recognition request names no course
	DefaultCourse = "General"

	// AdminTokenTTLHours is the lifetime of an admin token in hours
	AdminTokenTTLHours = 12
)
