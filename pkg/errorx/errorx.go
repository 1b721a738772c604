package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的自定义错误
// 实现了 error 接口，支持包装底层错误，且能被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 错误消息
	cause error  // 被包装的底层错误
}

// Error 存在底层错误时返回 "消息: 底层错误"，否则仅返回消息
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 同错误码即视为同类错误，便于 errors.Is(err, errorx.ErrConflict) 这样的判断
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.cause == nil
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeNotFound, "room not found")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf 包装底层错误，支持格式化消息
// 用法: errorx.Wrapf(err, CodeNotFound, "room %s not found", roomId)
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// GetCode 从错误中提取业务错误码，如果不是 CodeError 则返回默认码
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// 业务状态码常量定义
const (
	CodeSuccess          = 1000 // 成功
	CodeInvalidParam     = 1001 // 请求参数错误
	CodeServerBusy       = 1005 // 服务繁忙
	CodeUnauthorized     = 1006 // 未授权/认证失败
	CodePermissionDenied = 1007 // 角色校验失败
	CodeNotFound         = 1008 // 资源不存在
	CodeValidationFailed = 1009 // 业务校验失败（文件过大、邀请码过期等）
	CodeDBError          = 1010 // 数据库错误
	CodeCacheError       = 1011 // 缓存错误
	CodeConflict         = 1012 // 重复的终态流转
	CodeUnavailable      = 1013 // 外部依赖不可用
)

// 预定义常用错误实例
// 这些实例既可直接返回，也可用于 errors.Is 比较
var (
	ErrInvalidParam     = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy       = New(CodeServerBusy, "服务繁忙")
	ErrPermissionDenied = New(CodePermissionDenied, "permission denied")
	ErrNotFound         = New(CodeNotFound, "not found")
	ErrValidation       = New(CodeValidationFailed, "validation failed")
	ErrConflict         = New(CodeConflict, "conflict")
	ErrUnavailable      = New(CodeUnavailable, "service unavailable")
)

func hasCode(err error, code int) bool {
	var codeErr *CodeError
	return errors.As(err, &codeErr) && codeErr.Code == code
}

// IsNotFound 检查错误是否为"未找到"类型（包括 gorm.ErrRecordNotFound）
func IsNotFound(err error) bool {
	if hasCode(err, CodeNotFound) {
		return true
	}
	return err != nil && err.Error() == "record not found"
}

// IsPermissionDenied 检查是否为权限错误
func IsPermissionDenied(err error) bool { return hasCode(err, CodePermissionDenied) }

// IsValidation 检查是否为业务校验错误
func IsValidation(err error) bool { return hasCode(err, CodeValidationFailed) }

// IsConflict 检查是否为重复流转错误
func IsConflict(err error) bool { return hasCode(err, CodeConflict) }

// IsUnavailable 检查是否为依赖不可用（数据库、缓存、存储）
func IsUnavailable(err error) bool {
	return hasCode(err, CodeUnavailable) || hasCode(err, CodeDBError) || hasCode(err, CodeCacheError)
}
