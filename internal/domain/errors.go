package domain

import "errors"

// 存储层统一错误，由 HTTP 错误翻译层映射为状态码
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidID    = errors.New("invalid id")
	ErrDuplicateKey = errors.New("duplicate key")
)
