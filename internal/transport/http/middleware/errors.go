package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"bulkbuy-api/internal/core/apperr"
	"bulkbuy-api/internal/domain"
	resp "bulkbuy-api/internal/transport/http/response"
)

var setupOnce sync.Once

// SetupValidator 校验错误里的字段名改用 json/form 标签
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
}

func label(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

func isStringKind(fe validator.FieldError) bool {
	k := fe.Kind()
	return k == reflect.String
}

// fieldMessage 单个校验失败的提示语
func fieldMessage(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "Please provide a valid email"
	case "url", "http_url":
		return name + " must be a valid URL"
	case "min", "gte":
		if isStringKind(fe) {
			return fmt.Sprintf("%s must be at least %s characters long", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max", "lte":
		if isStringKind(fe) {
			return fmt.Sprintf("%s cannot exceed %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", name, fe.Param())
	case "numeric":
		return name + " must be numeric"
	case "oneof":
		return "Invalid " + fe.Field()
	}
	return name + " is invalid"
}

func validationBody(fields []apperr.FieldError) gin.H {
	return resp.Body("Validation failed", gin.H{"errors": fields})
}

// Translate 把错误映射为状态码和响应体；production 下隐藏未知错误的原文
func Translate(err error, production bool) (int, gin.H) {
	if ae, ok := apperr.As(err); ok {
		body := resp.Body(ae.Message, gin.H(ae.Details))
		if len(ae.Fields) > 0 {
			body["errors"] = ae.Fields
		}
		return ae.Status(), body
	}

	var (
		ves       validator.ValidationErrors
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, gin.H{"error": resp.LabelInvalidID, "message": "The provided ID is not valid"}
	case errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusBadRequest, gin.H{"error": resp.LabelValidation, "message": "Duplicate value for a unique field"}
	case errors.As(err, &ves):
		fields := make([]apperr.FieldError, 0, len(ves))
		for _, fe := range ves {
			fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return http.StatusBadRequest, validationBody(fields)
	case errors.As(err, &typeErr):
		return http.StatusBadRequest, validationBody([]apperr.FieldError{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("%s must be a %s", label(typeErr.Field), typeErr.Type.Kind()),
		}})
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, resp.Error(http.StatusBadRequest, "Malformed JSON body", nil)
	case errors.Is(err, io.EOF):
		return http.StatusBadRequest, resp.Error(http.StatusBadRequest, "Request body is required", nil)
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, resp.Error(http.StatusRequestEntityTooLarge, "", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, resp.Error(http.StatusGatewayTimeout, "Request timeout", nil)
	}

	msg := resp.LabelInternal
	if !production {
		msg = err.Error()
	}
	return http.StatusInternalServerError, gin.H{"error": resp.LabelInternal, "message": msg}
}

// Errors 统一错误出口：处理 c.Errors 中最后一个错误
func Errors(l *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		last := c.Errors.Last()
		err := last.Err
		if last.IsType(gin.ErrorTypeBind) {
			if _, ok := apperr.As(err); !ok && !isKnownBindError(err) {
				err = apperr.BadRequest("BAD_REQUEST", err.Error())
			}
		}
		status, body := Translate(err, production)
		if status >= http.StatusInternalServerError {
			l.Error("request failed",
				zap.String("rid", c.GetString(KeyRequestID)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
		}
		c.JSON(status, body)
	}
}

func isKnownBindError(err error) bool {
	var (
		ves       validator.ValidationErrors
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		tooLarge  *http.MaxBytesError
	)
	return errors.As(err, &ves) || errors.As(err, &typeErr) || errors.As(err, &syntaxErr) ||
		errors.As(err, &tooLarge) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
