package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("no configuration profiles found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Period / title derivation errors
	ErrInvalidPeriod = fmt.Errorf("malformed period identifier")

	// API and service errors
	ErrAPIRequest      = fmt.Errorf("API request failed")
	ErrLibraryNotFound = fmt.Errorf("library section not found")

	// Catalog write errors
	ErrCatalogOperation = fmt.Errorf("catalog operation failed")
)
