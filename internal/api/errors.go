package api

import (
	"errors"
	"net/http"

	"skyfed/internal/core"
)

var errInvalidBody = errors.New("invalid request body")

var statusByKind = map[core.Kind]int{
	core.KindNotFound:         http.StatusNotFound,
	core.KindInvalidStructure: http.StatusBadRequest,
	core.KindDuplicate:        http.StatusConflict,
	core.KindConflict:         http.StatusConflict,
	core.KindUnsupported:      http.StatusAccepted,
}

type errorResponse struct {
	Error string    `json:"error"`
	Kind  core.Kind `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if kind, ok := core.KindOf(err); ok {
		writeJSON(w, statusByKind[kind], errorResponse{Error: core.ReasonOf(err), Kind: kind})
		return
	}

	if errors.Is(err, errInvalidBody) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: core.KindInvalidStructure})
		return
	}

	logger(r.Context()).Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
}
