package errors

import "errors"

var (
	// ErrMissingAPIKey is returned when the Constellix API key is not provided
	ErrMissingAPIKey = errors.New("constellix API key is required")

	// ErrMissingAPISecret is returned when the Constellix API secret is not provided
	ErrMissingAPISecret = errors.New("constellix API secret is required")

	// ErrMissingZone is returned when no zone name is provided
	ErrMissingZone = errors.New("zone name is required")

	// ErrZoneNotFound is returned when the specified zone does not exist at Constellix
	ErrZoneNotFound = errors.New("zone not found")

	// ErrAPIRequestFailed is returned when a request to the Constellix API fails
	ErrAPIRequestFailed = errors.New("API request to Constellix failed")

	// ErrInvalidJSONFormat is returned when the JSON payload cannot be parsed
	ErrInvalidJSONFormat = errors.New("invalid JSON format in request")

	// ErrUnsupportedRecordType is returned when a raw record type outside the
	// supported set is encountered and the configured policy surfaces it
	ErrUnsupportedRecordType = errors.New("unsupported record type")
)
