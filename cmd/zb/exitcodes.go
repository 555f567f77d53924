package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no identity, unknown identity, unreadable config)
	ExitDataError   = 3 // Data error (malformed records with --strict, unreadable dump)
	ExitAPIError    = 4 // Zotero API error (auth, not found, rate limit, network)
)
