package cmd_controllers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	common "github.com/matchcore/core/pkg/domain"
)

func requestIDParam(r *http.Request) string {
	return mux.Vars(r)[string(common.RequestIDParamKey)]
}

func lobbyIDParam(r *http.Request) string {
	return mux.Vars(r)[string(common.LobbyIDParamKey)]
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
