// Package validation 实习生、合作协议、实习记录等的字段校验规则
//
// 规则均为纯函数，不访问存储；重叠检查所需的既有记录由调用方查询后传入。
package validation

import (
	"errors"
	"strings"
)

// 错误类别，配合 errors.Is 使用
var (
	ErrFormat   = errors.New("格式错误")
	ErrRange    = errors.New("取值超出范围")
	ErrDuration = errors.New("期限不合法")
	ErrConflict = errors.New("期间冲突")
	ErrRequired = errors.New("必填字段缺失")
)

// FieldError 单个字段的校验失败
type FieldError struct {
	Kind    error
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap 使 errors.Is(err, ErrConflict) 等判断生效
func (e *FieldError) Unwrap() error { return e.Kind }

// Errors 多个字段错误的集合
type Errors []*FieldError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap 供 errors.Is / errors.As 逐个匹配成员
func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Add 追加错误；nil 被忽略，Errors 会被展开
func (es *Errors) Add(err error) {
	if err == nil {
		return
	}
	var multi Errors
	if errors.As(err, &multi) {
		*es = append(*es, multi...)
		return
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		*es = append(*es, fe)
		return
	}
	*es = append(*es, &FieldError{Kind: err, Message: err.Error()})
}

// Err 没有错误时返回 nil，避免返回带类型的空切片
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// First 第一个字段错误，用于只展示一条提示的场景
func First(err error) *FieldError {
	var multi Errors
	if errors.As(err, &multi) && len(multi) > 0 {
		return multi[0]
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

func newError(kind error, field, msg string) *FieldError {
	return &FieldError{Kind: kind, Field: field, Message: msg}
}
