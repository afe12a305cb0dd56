package handlers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/eventpress/eventpress/pkg/errors"
	"github.com/eventpress/eventpress/pkg/response"
	appValidator "github.com/eventpress/eventpress/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := decodeAndValidate(c, dest); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}

// decodeAndValidate is bindAndValidate without the response side effect. An empty body
// decodes to the zero value so validation rules decide what is required.
func decodeAndValidate[T any](c *gin.Context, dest *T) error {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return appErrors.NewBadRequest("invalid JSON payload")
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		return appErrors.NewValidation("%s", formatValidationError(err))
	}

	return nil
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	var ve appValidator.ValidationErrors
	if errors.As(err, &ve) {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", field))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, failure.Param))
			case "verification_code":
				messages = append(messages, fmt.Sprintf("%s must be the 12-character code from the email", field))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}
