package channels

import (
	"context"
	"net/http"
)

// Channel delivers platform updates into the bot. Start blocks until ctx is
// cancelled and every in-flight update has been handled.
type Channel interface {
	Name() string
	RegisterRoutes(mux *http.ServeMux)
	Start(ctx context.Context) error
}
