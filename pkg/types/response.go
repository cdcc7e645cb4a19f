package types

// SuccessEnvelope wraps every 2xx JSON body: {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-facing error shape. Details is only populated
// for codes that whitelist it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error JSON body: {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
