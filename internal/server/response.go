package server

import (
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/agentgate/agentgate/internal/common/agentgateerrors"
	"github.com/agentgate/agentgate/internal/common/logging"
	"github.com/agentgate/agentgate/internal/common/requestid"
)

type errorResponse struct {
	Error     string       `json:"error"`
	RequestId string       `json:"requestId"`
	Fields    []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondOK(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, data)
}

// respondError writes err with the status code matching its type. Internal errors are logged.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := agentgateerrors.HttpStatusFromError(err)
	if status >= http.StatusInternalServerError {
		logging.WithStacktrace(log.WithField("requestId", requestid.FromContextOrMissing(r.Context())), err).
			Error("Failed to serve request")
	}
	respondJSON(w, status, &errorResponse{
		Error:     err.Error(),
		RequestId: requestid.FromContextOrMissing(r.Context()),
		Fields:    fieldErrors(err),
	})
}

// fieldErrors lists the invalid arguments err is made of, if any.
func fieldErrors(err error) []fieldError {
	var errs []error
	var merr *multierror.Error
	if errors.As(err, &merr) {
		errs = merr.Errors
	} else {
		errs = []error{err}
	}
	var rv []fieldError
	for _, e := range errs {
		var invalid *agentgateerrors.ErrInvalidArgument
		if errors.As(e, &invalid) {
			rv = append(rv, fieldError{Field: invalid.Name, Message: invalid.Message})
		}
	}
	return rv
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}
