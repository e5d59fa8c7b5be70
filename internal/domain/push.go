package domain

// Payload is a transport-ready push message. Data values are always text.
type Payload struct {
	Title    string
	Body     string
	ImageURL string
	Priority string
	Data     map[string]string
}

// TokenResult is the outcome of delivering to one target (a device token or a topic).
type TokenResult struct {
	Token        string
	Success      bool
	Error        string
	Unregistered bool
}
