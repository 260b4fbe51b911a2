package model

// Outcome is the terminal result of one adapter invocation. Exactly one
// Outcome (or one fatal error) is produced per invocation; an adapter never
// exits silently.
type Outcome struct {
	// Changed reports whether a mutating call was issued against the remote
	// system. False means the observed state already matched the declaration.
	Changed bool

	// Message is a human-readable description of what was found or done.
	Message string
}
