package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/go-user-directory/internal/types"
)

// Meta is the status header of every response envelope.
type Meta struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Envelope is the response shape shared by success and error paths.
type Envelope struct {
	Meta    Meta `json:"meta"`
	Results any  `json:"results"`
}

// SuccessResponse writes the success envelope around the given payload.
func SuccessResponse(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	WriteJSONResponse(w, r, status, Envelope{
		Meta:    Meta{Status: "success", Message: message},
		Results: data,
	})
}

// ErrorResponse writes the error envelope with a fixed message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSONResponse(w, r, status, Envelope{
		Meta:    Meta{Status: "error", Message: message},
		Results: nil,
	})
}

// HandleError classifies an error from the core and writes the matching
// status. Internal detail is logged, never echoed to the caller; the OAuth
// error kind is the one exception whose wrapped message is surfaced.
func HandleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, message := statusFromError(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", slog.Any("error", err))
	} else {
		logger.WarnContext(r.Context(), "request rejected", slog.Any("error", err))
	}
	ErrorResponse(w, r, status, message)
}

func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, types.ErrEmailExists):
		return http.StatusConflict, "Email already exists"
	case errors.Is(err, types.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, types.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, types.ErrCannotDeleteSelf):
		return http.StatusBadRequest, "Cannot delete your own account"
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, types.ErrNoVerifiedEmail):
		return http.StatusBadRequest, "OAuth error: no verified email available"
	case errors.Is(err, types.ErrOAuth):
		return http.StatusBadRequest, fmt.Sprintf("OAuth error: %s", err.Error())
	case errors.Is(err, types.ErrTokenCreation):
		return http.StatusInternalServerError, "Token creation error"
	case errors.Is(err, types.ErrPasswordHashing):
		return http.StatusInternalServerError, "Password hashing error"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// WriteJSONResponse encodes data to JSON and writes the response.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response body", slog.Any("error", err))
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("%w: body contains badly-formed JSON (at character %d)", types.ErrValidation, syntaxError.Offset)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return fmt.Errorf("%w: body contains badly-formed JSON", types.ErrValidation)

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("%w: body contains incorrect JSON type for field %q", types.ErrValidation, unmarshalTypeError.Field)
			}
			return fmt.Errorf("%w: body contains incorrect JSON type (at character %d)", types.ErrValidation, unmarshalTypeError.Offset)

		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: body must not be empty", types.ErrValidation)

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			fieldName = strings.Trim(fieldName, `"`)
			return fmt.Errorf("%w: body contains unknown key %q", types.ErrValidation, fieldName)

		case errors.As(err, &maxBytesError):
			return fmt.Errorf("%w: body must not be larger than %d bytes", types.ErrValidation, maxBytesError.Limit)

		default:
			return fmt.Errorf("%w: error decoding JSON body: %s", types.ErrValidation, err)
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must only contain a single JSON value", types.ErrValidation)
	}

	return nil
}
