package api

import (
	"errors"
	"net/http"

	"rentcars/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const kindUnauthorized = "UnauthorizedError"

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// httpStatus maps a service error kind to its HTTP status.
func httpStatus(kind service.Kind) int {
	switch kind {
	case service.KindInvalidInput, service.KindInvalidDate, service.KindInvalidRange:
		return http.StatusBadRequest
	case service.KindCarNotFound, service.KindUserNotFound:
		return http.StatusNotFound
	case service.KindCarUnavailable, service.KindOverlap, service.KindCarInUse:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// grpcCode maps a service error kind to its gRPC status code.
func grpcCode(kind service.Kind) codes.Code {
	switch kind {
	case service.KindInvalidInput, service.KindInvalidDate, service.KindInvalidRange:
		return codes.InvalidArgument
	case service.KindCarNotFound, service.KindUserNotFound:
		return codes.NotFound
	case service.KindCarUnavailable, service.KindCarInUse:
		return codes.FailedPrecondition
	case service.KindOverlap:
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// describe returns the kind and the caller-facing message. Backend details stay in the log.
func describe(err error) errorResponse {
	kind := service.KindOf(err)
	if !kind.IsClientError() {
		return errorResponse{Kind: string(service.KindPersistence), Message: "internal error"}
	}
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return errorResponse{Kind: string(kind), Message: svcErr.Message}
	}
	return errorResponse{Kind: string(kind), Message: err.Error()}
}

func toStatus(err error) error {
	body := describe(err)
	return status.Error(grpcCode(service.Kind(body.Kind)), body.Message)
}
