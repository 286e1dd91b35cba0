package observability

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewTracedClient returns an http.Client whose transport emits a client span
// per request, named "<component> METHOD host". No client timeout is set;
// callers bound requests through their context.
func NewTracedClient(component string) *http.Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("%s %s %s", component, r.Method, r.URL.Host)
		}),
	)
	return &http.Client{Transport: transport}
}
