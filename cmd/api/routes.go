package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/fields", app.fieldsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/validate", app.validateHandler)
	router.HandlerFunc(http.MethodPost, "/v1/change", app.changeHandler)
	router.HandlerFunc(http.MethodGet, "/v1/statistics", app.statisticsHandler)

	return app.correlationID(app.logRequest(app.rateLimit(app.recoverPanic(router))))
}
