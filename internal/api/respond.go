package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/logger"
	"github.com/rflorenc/deploy-ledger/internal/store"
)

const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("writing JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeXML(w http.ResponseWriter, status int, e contract.Encoder) {
	data, err := contract.Marshal(e)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	w.Write(data)
}

// writeFailure maps an error kind to a status code: malformed input and
// contract violations are the client's fault, a missing row is 404.
func writeFailure(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contract.ErrInvalidArgument),
		errors.Is(err, contract.ErrWrongElementType),
		errors.Is(err, contract.ErrMissingElement),
		errors.Is(err, contract.ErrInvalidAttribute):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// readXML decodes the request body with dec. A body that is not XML at all
// is reported as malformed; one over maxBodyBytes fails with
// *http.MaxBytesError.
func readXML[T any](w http.ResponseWriter, r *http.Request, dec contract.Decoder[T]) (T, error) {
	var zero T
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return zero, fmt.Errorf("reading body: %w", err)
	}
	root, err := contract.Parse(data)
	if err != nil {
		return zero, &contract.MissingElementError{Name: "document (" + err.Error() + ")"}
	}
	return dec(root)
}
