package handlers

import (
	"net/http"
	"time"

	"github.com/DanielPopoola/pesapal-gateway/internal/api"
	"github.com/DanielPopoola/pesapal-gateway/internal/application"
	"github.com/DanielPopoola/pesapal-gateway/internal/interfaces/rest"
	"github.com/DanielPopoola/pesapal-gateway/internal/interfaces/rest/middleware"
)

const ipnPath = "/api/pesapal/ipn"

// Routes mounts the API and docs behind the middleware stack.
func (h *Handlers) Routes(requestTimeout time.Duration) (http.Handler, error) {
	doc, err := api.GetSwagger()
	if err != nil {
		return nil, err
	}
	validator, err := middleware.OpenAPIValidator(doc, h.logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	api.RegisterDocsRoutes(mux)
	api.HandlerFromMux(h, mux, func(w http.ResponseWriter, _ *http.Request, err error) {
		rest.WriteError(w, application.NewValidationError(err.Error(), err), h.logger)
	})

	return middleware.Chain(mux,
		middleware.Recovery(h.logger, ipnPath),
		middleware.Logging(h.logger),
		middleware.Timeout(requestTimeout, ipnPath),
		validator,
	), nil
}
