package ports

import "net/http"

// HTTPClient abstracts the HTTP round trip for dependency injection.
// *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
