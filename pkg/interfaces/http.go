package interfaces

import "net/http"

// HTTPDoer is the transport used by the catalog client. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
