package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/arvandy/moodmate/pkg/errors"
	"github.com/arvandy/moodmate/pkg/response"
	appValidator "github.com/arvandy/moodmate/pkg/validator"
)

// bindAndValidate decodes the JSON body into dest and runs the struct rules.
// On failure it writes the 400 response itself and returns false, so handlers
// can bail with a plain `return`.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}
	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(validationMessage(err)))
		return false
	}
	return true
}

// validationMessage flattens validator failures into one sentence per field.
// The frontend shows these next to the offending form inputs, so they are
// phrased for end users rather than API clients.
func validationMessage(err error) string {
	ve, ok := err.(appValidator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "invalid request payload"
	}

	parts := make([]string, 0, len(ve))
	for _, failure := range ve {
		parts = append(parts, fieldMessage(failure))
	}
	return strings.Join(parts, "; ")
}

func fieldMessage(failure appValidator.ValidationError) string {
	field := strings.ToLower(strings.ReplaceAll(failure.Field, "_", " "))
	if field == "" {
		field = "field"
	}

	switch failure.Tag {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, failure.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, failure.Param)
	case "password":
		return field + " must contain at least one letter and one digit"
	}
	if failure.Param != "" {
		return fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param)
	}
	return fmt.Sprintf("%s failed validation: %s", field, failure.Tag)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
