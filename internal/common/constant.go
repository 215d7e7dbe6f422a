package common

const (
	// AuthorizationHeaderName carries the bearer access token on requests to
	// the backend.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// ResultsStorageKey is the fixed key the local result collection lives under.
	ResultsStorageKey = "willnicht_results"
)
