package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindCast
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindDuplicate
)

var kindStatus = map[Kind]int{
	KindInternal:     http.StatusInternalServerError,
	KindValidation:   http.StatusBadRequest,
	KindCast:         http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindNotFound:     http.StatusNotFound,
	KindDuplicate:    http.StatusBadRequest,
}

// FieldError 单字段校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 业务错误：Kind 决定 HTTP 状态，Code 用于 errors.Is 比较
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按 Code 匹配，允许带不同 Details 的同类错误互相识别
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

func (e *Error) Status() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// With 返回附带 details 的副本
func (e *Error) With(details map[string]any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// Wrap 返回包裹底层错误的副本
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func New(kind Kind, code, msg string) *Error { return &Error{Kind: kind, Code: code, Message: msg} }

func BadRequest(code, msg string) *Error   { return New(KindValidation, code, msg) }
func Unauthorized(code, msg string) *Error { return New(KindUnauthorized, code, msg) }
func Forbidden(code, msg string) *Error    { return New(KindForbidden, code, msg) }
func NotFound(code, msg string) *Error     { return New(KindNotFound, code, msg) }
func Duplicate(code, msg string) *Error    { return New(KindDuplicate, code, msg) }
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: msg, Err: err}
}

// Validation 字段级校验失败
func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: "Validation failed", Fields: fields}
}

// As 取出 *Error
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
