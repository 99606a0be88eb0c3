package constants

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimestampFormat is the storage layout for instants. Unlike
	// time.RFC3339Nano it never trims trailing zeros, so TEXT columns
	// sort chronologically under plain lexicographic ordering.
	TimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"
)
