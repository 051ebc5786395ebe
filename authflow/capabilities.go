package authflow

import "net/url"

// Navigator abstracts the host application's router.
type Navigator interface {
	// Replace swaps the current location without growing history.
	Replace(path string, query url.Values) error

	// ForceAssign performs a hard navigation. It is a heavier operation
	// than Replace and is reserved for the post-login fallback guard.
	ForceAssign(path string)

	// CurrentPath returns the path of the current location.
	CurrentPath() string

	// CurrentFullPath returns the current path including its query string.
	CurrentFullPath() string
}

// Notifier delivers terminal login outcomes to the user. The orchestrator
// emits exactly one call per terminal outcome.
type Notifier interface {
	Success(message, description string)
	Warning(message, description string)
	Error(message, description string)
}
