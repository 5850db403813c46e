package gateway

import (
	"encoding/json"
	"log"
	"net/http"

	cberrors "github.com/casebooklabs/casebook/internal/errors"
)

// errorBody is the JSON shape of every non-2xx gateway response.
type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// kindStatus is the single mapping from failure kinds to HTTP statuses.
// Services never choose statuses; they return coded errors and this table
// decides the rest.
var kindStatus = map[cberrors.Kind]int{
	cberrors.KindNotFound:  http.StatusNotFound,
	cberrors.KindConflict:  http.StatusConflict,
	cberrors.KindForbidden: http.StatusForbidden,
	cberrors.KindInvalid:   http.StatusUnprocessableEntity,
	cberrors.KindTimeout:   http.StatusGatewayTimeout,
	cberrors.KindFatal:     http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("gateway: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, ok := kindStatus[cberrors.GetKind(err)]
	if !ok {
		status = http.StatusInternalServerError
	}
	code := cberrors.GetCode(err)
	message := "Internal server error"
	if code != cberrors.CodeUnknown {
		message = err.Error()
	} else {
		log.Printf("gateway: unclassified error: %v", err)
	}
	writeJSON(w, status, errorBody{
		Code:     string(code),
		Message:  message,
		Metadata: cberrors.GetMetadata(err),
	})
}
