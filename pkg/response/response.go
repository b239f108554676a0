package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Response 统一响应结构
type Response struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Data       interface{}         `json:"data,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
	Pagination *Pagination         `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

func NewPagination(page, perPage int, total int64) *Pagination {
	last := 1
	if perPage > 0 && total > 0 {
		last = int(math.Ceil(float64(total) / float64(perPage)))
	}
	return &Pagination{CurrentPage: page, PerPage: perPage, Total: total, LastPage: last}
}

var debug atomic.Bool

// SetDebug 控制 500 响应是否暴露底层错误
func SetDebug(on bool) { debug.Store(on) }

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func Paginated(c *gin.Context, data interface{}, p *Pagination) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Pagination: p})
}

func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message})
}

func BadRequest(c *gin.Context, message string) { Fail(c, http.StatusBadRequest, message) }

func Unauthorized(c *gin.Context, message string) { Fail(c, http.StatusUnauthorized, message) }

func Forbidden(c *gin.Context, message string) { Fail(c, http.StatusForbidden, message) }

func NotFound(c *gin.Context, message string) { Fail(c, http.StatusNotFound, message) }

func Conflict(c *gin.Context, message string) { Fail(c, http.StatusConflict, message) }

func TooManyRequests(c *gin.Context) {
	Fail(c, http.StatusTooManyRequests, "Too many requests")
}

// ValidationFailed 422 + 按字段的错误
func ValidationFailed(c *gin.Context, errs map[string][]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Response{
		Success: false,
		Message: "The given data was invalid.",
		Errors:  errs,
	})
}

// ValidationError converts a binding error into a 422 response.
func ValidationError(c *gin.Context, err error) {
	ValidationFailed(c, FieldErrors(err))
}

// InternalError 500；debug 模式下返回底层错误信息
func InternalError(c *gin.Context, err error) {
	_ = c.Error(err)
	msg := "Internal server error"
	if debug.Load() && err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Success: false, Message: msg})
}

// FieldErrors flattens validator and JSON decoding errors into field -> messages.
func FieldErrors(err error) map[string][]string {
	out := map[string][]string{}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := fe.Field()
			out[field] = append(out[field], fieldMessage(field, fe))
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		out[field] = append(out[field], fmt.Sprintf("The %s field must be of type %s.", humanize(field), typeErr.Type.String()))
		return out
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		out["body"] = []string{"The request body is not valid JSON."}
		return out
	}

	if err != nil {
		out["body"] = []string{err.Error()}
	}
	return out
}

func fieldMessage(field string, fe validator.FieldError) string {
	name := humanize(field)
	switch fe.Tag() {
	case "required", "required_without", "required_if":
		return fmt.Sprintf("The %s field is required.", name)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s.", name, fe.Param())
	case "max":
		return fmt.Sprintf("The %s field may not be greater than %s.", name, fe.Param())
	case "gte", "gt":
		return fmt.Sprintf("The %s field must be greater than or equal to %s.", name, fe.Param())
	case "lte", "lt":
		return fmt.Sprintf("The %s field must be less than or equal to %s.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid. Allowed: %s.", name, fe.Param())
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", name)
	case "url":
		return fmt.Sprintf("The %s field must be a valid URL.", name)
	case "dive":
		return fmt.Sprintf("The %s field contains an invalid value.", name)
	}
	return fmt.Sprintf("The %s field is invalid.", name)
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
