package opsapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/pickup-matchmaking/internal/usecase"
)

const (
	apiVersion  = "2.0"
	errorDomain = "pickup-matchmaking"
)

type responseEnvelope struct {
	APIVersion string     `json:"apiVersion"`
	Data       any        `json:"data,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Errors  []errorItem `json:"errors,omitempty"`
}

type errorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

// errUnauthorized is local to the ops surface; use cases never authenticate.
var errUnauthorized = errors.New("unauthorized")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, responseEnvelope{APIVersion: apiVersion, Data: data})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := mapError(ctx, err)
	message := err.Error()
	if mapped.HTTPStatus == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeJSON(w, mapped.HTTPStatus, responseEnvelope{
		APIVersion: apiVersion,
		Error: &errorBody{
			Code:    mapped.HTTPStatus,
			Message: message,
			Status:  mapped.Status,
			Errors:  []errorItem{{Domain: errorDomain, Reason: mapped.Reason, Message: message}},
		},
	})
}

func writeInternalError(w http.ResponseWriter) {
	const msg = "internal server error"
	writeJSON(w, http.StatusInternalServerError, responseEnvelope{
		APIVersion: apiVersion,
		Error: &errorBody{
			Code:    http.StatusInternalServerError,
			Message: msg,
			Status:  "INTERNAL",
			Errors:  []errorItem{{Domain: errorDomain, Reason: "internalError", Message: msg}},
		},
	})
}

func mapError(ctx context.Context, err error) mappedError {
	_, span := startSpan(ctx, "opsapi.mapError")
	defer span.End()

	switch {
	case errors.Is(err, errUnauthorized):
		return mappedError{HTTPStatus: http.StatusUnauthorized, Reason: "unauthorized", Status: "UNAUTHENTICATED"}
	case errors.Is(err, usecase.ErrNotAMatchmakingVenue),
		errors.Is(err, usecase.ErrChallengeNotFound):
		return mappedError{HTTPStatus: http.StatusNotFound, Reason: "notFound", Status: "NOT_FOUND"}
	case errors.Is(err, usecase.ErrValidation):
		return mappedError{HTTPStatus: http.StatusBadRequest, Reason: "invalidInput", Status: "INVALID_ARGUMENT"}
	case errors.Is(err, usecase.ErrConflict):
		return mappedError{HTTPStatus: http.StatusConflict, Reason: "conflict", Status: "ALREADY_EXISTS"}
	case errors.Is(err, usecase.ErrPreconditionFailed):
		return mappedError{HTTPStatus: http.StatusPreconditionFailed, Reason: "preconditionFailed", Status: "FAILED_PRECONDITION"}
	case errors.Is(err, usecase.ErrExternalUnavailable):
		return mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "dependencyUnavailable", Status: "UNAVAILABLE"}
	default:
		return mappedError{HTTPStatus: http.StatusInternalServerError, Reason: "internalError", Status: "INTERNAL"}
	}
}
