package httpapi

import (
	"encoding/json"
	"net/http"

	pkgerrors "github.com/objectql/objectos-sub004/pkg/errors"
)

// writeChiJSON and friends mirror response.go's envelope for the chi
// sub-router mounted under gin.WrapH, which has no gin.Context to hang off.
func writeChiJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeChiError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message, Message: message})
}

func writeChiServiceError(w http.ResponseWriter, err error) {
	status := pkgerrors.GetHTTPStatus(err)
	message := err.Error()
	if svcErr := pkgerrors.GetServiceError(err); svcErr != nil {
		message = svcErr.Message
	}
	writeChiError(w, status, message)
}
