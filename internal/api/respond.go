package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/medhirweb/salespipe/internal/store"
	"github.com/medhirweb/salespipe/internal/transition"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps workflow errors onto HTTP statuses. Lookup misses are 404,
// rejected submissions 400, conflicts 409; everything else is a 500 with the
// detail kept server-side.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transition.ErrValidation):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeErrorStatus(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrStageInUse), errors.Is(err, store.ErrDuplicateKey):
		writeErrorStatus(w, http.StatusConflict, err.Error())
	default:
		zap.L().Error("api: internal error", zap.Error(err))
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}
