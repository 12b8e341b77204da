package httpapi

func registerSystemRoutes(r *routes, handler *Handler, swaggerEnabled bool) {
	r.handle("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	r.handle("GET "+openAPIPath, handler.OpenAPI)
	r.handle("GET /docs", handler.SwaggerUI)
	r.handle("GET /docs/", handler.SwaggerUI)
}

func registerWeekRoutes(r *routes, handler *Handler) {
	r.handle("GET /v1/weeks", handler.ListWeeks)
	r.handle("POST /v1/weeks/reload", handler.ReloadWeeks)
	r.handle("GET /v1/weeks/latest", handler.GetLatestWeek)
	r.handle("GET /v1/weeks/{weekID}/players", handler.ListWeekPlayers)
	r.handle("GET /v1/weeks/{weekID}/stats", handler.GetWeekStats)
}

func registerHistoryRoutes(r *routes, handler *Handler) {
	r.handle("POST /v1/history/reload", handler.ReloadHistory)
	r.handle("GET /v1/history", handler.GetHistory)
	r.handle("GET /v1/history/snapshot", handler.GetHistorySnapshot)
	r.handle("GET /v1/history/players/{name}", handler.GetPlayerSeries)
	r.handle("GET /v1/history/top", handler.ListTopPlayers)
}

func registerPreferenceRoutes(r *routes, handler *Handler) {
	r.handle("GET /v1/preferences", handler.ListPreferences)
	r.handle("GET /v1/preferences/{key}", handler.GetPreference)
	r.handle("PUT /v1/preferences/{key}", handler.SetPreference)
}
