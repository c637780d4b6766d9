package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/akumm2k/reversi/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidCoordinate = "INVALID_COORDINATE"
	CodeInvalidDisk       = "INVALID_DISK"
	CodeIllegalMove       = "ILLEGAL_MOVE"
	CodeNotYourTurn       = "NOT_YOUR_TURN"
	CodeGameNotInProgress = "GAME_NOT_IN_PROGRESS"
	CodeSessionFull       = "SESSION_FULL"
	CodeGameNotFound      = "GAME_NOT_FOUND"
	CodeNoAvailableGame   = "NO_AVAILABLE_GAME"
	CodeInvalidLogin      = "INVALID_LOGIN"
	CodeUnknownStrategy   = "UNKNOWN_STRATEGY"
	CodeInternalError     = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrInvalidCoordinate):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidCoordinate, "Coordinate is outside the board"}}
	case errors.Is(err, model.ErrInvalidDisk):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDisk, "Disk must be WHITE or BLACK"}}
	case errors.Is(err, model.ErrIllegalMove):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeIllegalMove, "Move does not flip any disks"}}
	case errors.Is(err, model.ErrNotYourTurn):
		return &httpError{http.StatusConflict, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrGameNotInProgress):
		return &httpError{http.StatusConflict, APIError{CodeGameNotInProgress, "Game is not in progress"}}
	case errors.Is(err, model.ErrSessionFull):
		return &httpError{http.StatusConflict, APIError{CodeSessionFull, "Game already has two players"}}
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrNoAvailableGame):
		return &httpError{http.StatusNotFound, APIError{CodeNoAvailableGame, "No game is waiting for a player"}}
	case errors.Is(err, model.ErrInvalidLogin):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidLogin, "Login must be 1 to 32 characters"}}
	case errors.Is(err, model.ErrUnknownStrategy):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownStrategy, "Unknown bot strategy"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
