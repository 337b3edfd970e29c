// Package errors 跨模块共享的哨兵错误
package errors

import "errors"

var (
	// ErrOptimisticLock 乐观锁冲突：记录在读取后被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrNotFound 引用的实体不存在；各模块的 NotFound 哨兵都包装它
	ErrNotFound = errors.New("记录不存在")
)
