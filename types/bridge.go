package types

// NewBridgeRequest contains the configuration for creating a new Bridge instance.
type NewBridgeRequest struct {
	// Required
	// Base URL of your automation platform instance, i.e.
	// "http://localhost:8123" or "https://ha.example.com".
	URL string

	// Required
	// Long-lived access token generated in the platform. Used
	// to connect to the Websocket API.
	AuthToken string
}
