package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/akumm2k/reversi/internal/api/apierr"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 16

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads a JSON body into dst and validates it.
// Failures are returned as INVALID_REQUEST errors.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierr.NewInvalidRequestError("invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apierr.NewInvalidRequestError(describe(verrs))
		}
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(fields, "; ")
}
