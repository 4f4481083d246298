package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/pagination"
)

const (
	maxJSONBody   = 20 << 10
	maxUploadBody = 1 << 30
	// uploads beyond this stay on disk while the request is handled
	uploadMemory = 32 << 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperror.Validation("request body is too large")
		case errors.Is(err, io.EOF):
			return apperror.Validation("request body is required")
		default:
			return apperror.Validation("invalid request body")
		}
	}
	return validateStruct(dst)
}

func validateStruct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.Validation("invalid request body")
	}

	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, describeFieldError(fe))
	}
	return apperror.Validation("fields are invalid", details...)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "alphanum":
		return fe.Field() + " may only contain letters and digits"
	case "nefield":
		return fe.Field() + " must differ from " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// intQuery reads an integer query parameter, returning fallback when absent.
func intQuery(r *http.Request, key string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperror.Validation(key + " must be a number")
	}
	return n, nil
}

func pageQuery(r *http.Request) (page, limit int, err error) {
	page, err = intQuery(r, "page", pagination.DefaultPage)
	if err != nil {
		return 0, 0, err
	}
	limit, err = intQuery(r, "limit", pagination.DefaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit > pagination.MaxLimit {
		return 0, 0, apperror.Validation("invalid pagination parameters", fmt.Sprintf("limit must be at most %d", pagination.MaxLimit))
	}
	return page, limit, nil
}

// parseMultipart parses a bounded multipart body. The returned cleanup
// removes any temporary files.
func parseMultipart(w http.ResponseWriter, r *http.Request) (func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return func() {}, apperror.Validation("upload is too large")
		}
		return func() {}, apperror.Validation("expected a multipart/form-data body")
	}
	return func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, nil
}

// formFile opens field from a parsed multipart form. It returns a nil file
// when the field is absent.
func formFile(r *http.Request, field string) (multipart.File, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", apperror.Validation("could not read " + field)
	}
	return file, header.Filename, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
