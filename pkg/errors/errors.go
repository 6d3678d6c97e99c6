package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// 错误码
const (
	CodeUnknown       = 0
	CodeInvalidInput  = 400
	CodeNotConfigured = 503
	CodeUpstream      = 502
)

// Error 带错误码、堆栈与上下文的错误
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"`
	Stack   string     `json:"stack,omitempty"`
	Context []KeyValue `json:"context,omitempty"`
}

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithCode creates a new error with code
func WithCode(code int, message string) *Error {
	return &Error{Code: code, Message: message, Stack: captureStack()}
}

func WithCodef(code int, format string, args ...any) *Error {
	return WithCode(code, fmt.Sprintf(format, args...))
}

// NotConfigured 外部依赖缺少配置（密钥、地址等）
func NotConfigured(what string) *Error {
	return WithCodef(CodeNotConfigured, "%s is not configured", what)
}

// Upstream 包装外部服务调用失败
func Upstream(err error, service string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: CodeUpstream, Message: service + " request failed", Err: err, Stack: captureStack()}
}

func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	code := CodeUnknown
	if e, ok := err.(*Error); ok {
		code = e.Code
	}
	return &Error{Code: code, Message: message, Err: err, Stack: captureStack()}
}

func Wrapf(err error, format string, args ...any) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

func New(message string) *Error {
	return &Error{Message: message, Stack: captureStack()}
}

func Errorf(format string, args ...any) *Error {
	return New(fmt.Sprintf(format, args...))
}

// WithContext 返回附加了上下文的新错误，不修改原错误
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}
	ctx := make([]KeyValue, len(e.Context), len(e.Context)+1)
	copy(ctx, e.Context)
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Stack:   e.Stack,
		Context: append(ctx, KeyValue{Key: key, Value: value}),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	lines := strings.Split(string(buf[:n]), "\n")
	// 去掉 goroutine 头和 captureStack / 构造函数自身的帧
	if len(lines) > 5 {
		lines = lines[5:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// GetCode 沿错误链查找第一个非零错误码
func GetCode(err error) int {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Code != CodeUnknown {
				return e.Code
			}
			err = e.Err
			continue
		}
		if u, ok := err.(interface{ Unwrap() error }); ok {
			err = u.Unwrap()
			continue
		}
		return CodeUnknown
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code int) bool {
	return err != nil && GetCode(err) == code
}

func GetStack(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Stack
	}
	return ""
}

// Cause returns the innermost error.
func Cause(err error) error {
	for err != nil {
		e, ok := err.(*Error)
		if !ok || e.Err == nil {
			return err
		}
		err = e.Err
	}
	return err
}

func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", e.Error())
			if e.Stack != "" {
				fmt.Fprintf(s, "\n%s", e.Stack)
			}
			return
		}
		fallthrough
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
