package api

const (
	MediaTypeFormatAndVersion = "application/external.dns.webhook+json;version=1"
	contentTypeHeader         = "Content-Type"
	varyHeader                = "Vary"
	logFieldError             = "err"
)

type Message struct {
	Message string `json:"message"`
}
