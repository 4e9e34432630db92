package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"productsapi/repository"
)

type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// report json names in validation messages
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeRepoError maps repository errors to a response. Anything unexpected
// is logged and answered with the route's generic message.
func writeRepoError(w http.ResponseWriter, log *zap.Logger, err error, notFound, internal string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, repository.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, `Invalid operation. Use "add" or "subtract"`)
	default:
		log.Error(internal, zap.Error(err))
		writeError(w, http.StatusInternalServerError, internal)
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// missingFields lists the fields that failed a "required" rule, or nil when
// validation failed for another reason.
func missingFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	var fields []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			fields = append(fields, fe.Field())
		}
	}
	return fields
}

// validationMessage builds the 400 message for a failed validation.
func validationMessage(err error, fallback string) string {
	if fields := missingFields(err); len(fields) > 0 {
		return "Missing required fields: " + strings.Join(fields, ", ")
	}
	return fallback
}
