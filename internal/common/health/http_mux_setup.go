package health

import (
	"net/http"
)

// Mux is satisfied by both *http.ServeMux and chi.Router.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

func SetupHttpMux(mux Mux, checker Checker) {
	mux.Handle("/health", NewHealthCheckHttpHandler(checker))
}
