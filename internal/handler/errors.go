package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"socialgraph/backend/internal/relation"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error               string            `json:"error" example:"An error message"`
	Code                string            `json:"code,omitempty" example:"not_found"`
	Status              string            `json:"status,omitempty" example:"following"`
	FriendRequestStatus string            `json:"friend_request_status,omitempty" example:"declined"`
	Fields              map[string]string `json:"fields,omitempty"`
}

func statusFor(code relation.Code) int {
	switch code {
	case relation.CodeUnauthenticated:
		return http.StatusUnauthorized
	case relation.CodeInvalidTarget, relation.CodeInvalidType:
		return http.StatusBadRequest
	case relation.CodeNotFound:
		return http.StatusNotFound
	case relation.CodeAlreadyExists:
		return http.StatusConflict
	case relation.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Unknown errors are logged and hidden.
func (h *Handler) respondError(c *gin.Context, err error) {
	var relErr *relation.Error
	if !errors.As(err, &relErr) {
		h.logger.Error("Unhandled request error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	resp := ErrorResponse{Error: relErr.Message, Code: string(relErr.Code)}
	if status, request, ok := relErr.ExistingStatus(); ok {
		resp.Status = string(status)
		resp.FriendRequestStatus = string(request)
	}
	if relErr.Code == relation.CodeStoreUnavailable {
		h.logger.Error("Storage failure", "path", c.FullPath(), "error", err)
	}
	c.JSON(statusFor(relErr.Code), resp)
}

// respondBindError reports a malformed body. Validation failures are
// flattened to one message per JSON field.
func respondBindError(c *gin.Context, code relation.Code, err error) {
	resp := ErrorResponse{Error: "Invalid request body", Code: string(code)}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Fields[fe.Field()] = fieldMessage(fe)
		}
	} else {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report JSON field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a UUID"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
