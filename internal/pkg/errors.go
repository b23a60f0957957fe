package pkg

import (
	"errors"
	"net/http"
)

// 仓储实现共用的哨兵错误
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUserBanned      = errors.New("user is banned from community")
)

type Kind string

const (
	KindBadRequest   Kind = "BAD_REQUEST"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindInternal     Kind = "INTERNAL"
)

// AppError 业务错误统一类型
type AppError struct {
	Kind    Kind
	Message string
	Origin  error
}

func (e *AppError) Error() string {
	if e.Origin != nil {
		return e.Message + ": " + e.Origin.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Origin }

func NewAppError(kind Kind, message string, origin error) *AppError {
	return &AppError{Kind: kind, Message: message, Origin: origin}
}

func BadRequest(message string) error   { return NewAppError(KindBadRequest, message, nil) }
func Unauthorized(message string) error { return NewAppError(KindUnauthorized, message, nil) }
func Forbidden(message string) error    { return NewAppError(KindForbidden, message, nil) }
func NotFound(message string) error     { return NewAppError(KindNotFound, message, nil) }
func Conflict(message string) error     { return NewAppError(KindConflict, message, nil) }

func Internal(message string, origin error) error {
	return NewAppError(KindInternal, message, origin)
}

// KindOf 未分类的错误视为 KindInternal
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind conflict 同时也算 bad request
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	k := KindOf(err)
	if k == kind {
		return true
	}
	return kind == KindBadRequest && k == KindConflict
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage 可以返回给客户端的信息，内部错误不外泄
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal server error"
}
