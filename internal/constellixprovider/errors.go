package constellixprovider

import (
	"github.com/hugovk/constellix-dns-sync/pkg/errors"
)

var (
	// ErrMissingAPIKey is returned when the Constellix API key is not provided
	ErrMissingAPIKey = errors.ErrMissingAPIKey

	// ErrMissingAPISecret is returned when the Constellix API secret is not provided
	ErrMissingAPISecret = errors.ErrMissingAPISecret

	// ErrMissingZone is returned when no zone is configured
	ErrMissingZone = errors.ErrMissingZone

	// ErrZoneNotFound is returned when the configured zone is not found
	ErrZoneNotFound = errors.ErrZoneNotFound

	// ErrAPIRequestFailed is returned when a request to the Constellix API fails
	ErrAPIRequestFailed = errors.ErrAPIRequestFailed
)
