package routed

import (
	"net/http"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func (s *RouteDaemon) NewRouter() http.Handler {
	router := mux.NewRouter().StrictSlash(false)
	router.Use(s.loggingMiddleware)

	router.Path("/ping").HandlerFunc(pingPong).Methods(http.MethodGet)
	router.Path("/socket").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiJSONRoutes := router.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))
	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)

	authenticatedAPIRoutes := apiJSONRoutes.NewRoute().Subrouter()
	authenticatedAPIRoutes.Use(tokenAuthenticationMiddleware)
	authenticatedAPIRoutes.Path("/barriers/{layer}").HandlerFunc(s.handlePutBarriers).Methods(http.MethodPut)
	authenticatedAPIRoutes.Path("/barriers/{layer}").HandlerFunc(s.handleDeleteBarriers).Methods(http.MethodDelete)
	authenticatedAPIRoutes.Path("/route/{layer}").HandlerFunc(s.handleRoute).Methods(http.MethodPost)

	return ghandlers.RecoveryHandler(ghandlers.PrintRecoveryStack(true))(
		ghandlers.CORS(
			ghandlers.AllowedOrigins([]string{"*"}),
			ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete}),
			ghandlers.AllowedHeaders([]string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"}),
		)(router))
}
