package config

const (
	DefaultTimeZone = "Asia/Singapore"
	DefaultPort     = 6143

	// Import sessions
	DefaultSessionTTL     = "2h"
	DefaultPurgeSchedule  = "*/10 * * * *" // every 10 minutes
	MaxUploadBytes        = 32 << 20
	DirectoryFetchTimeout = "5s"

	// Narrative service
	DefaultNarrativeModel   = "gemini-2.0-flash"
	DefaultNarrativeTimeout = "20s"

	// Header mapping
	ReviewThreshold = 0.7

	// Client identifiers
	ClientIDPrefix   = "C"
	ClientIDMinWidth = 3
	NoClientID       = "-"
)
