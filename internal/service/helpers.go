package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/internal/validation"
	"github.com/baratadiego/appestagio/pkg/storage"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// ── 公共辅助方法 ──

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// isValidationError 业务校验失败，不记错误日志
func isValidationError(err error) bool {
	var fe *validation.FieldError
	return errors.As(err, &fe)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// optionalString 去除首尾空白，空串返回 nil
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// clock 机构时区下的"今天"；测试中替换 now
type clock struct {
	loc *time.Location
	now func() time.Time
}

func newClock(loc *time.Location) clock {
	if loc == nil {
		loc = time.UTC
	}
	return clock{loc: loc, now: time.Now}
}

func (c clock) today() time.Time {
	return timeutil.DateOf(c.now(), c.loc)
}

// statsHook 写操作提交后刷新统计快照，失败只记日志
type statsHook struct {
	stats  StatisticsService
	logger *zap.Logger
}

func (h statsHook) refresh(ctx context.Context) {
	if h.stats == nil {
		return
	}
	if _, err := h.stats.Recompute(ctx); err != nil {
		h.logger.Warn("刷新统计快照失败", zap.Error(err))
	}
}

// internshipTarget 实习记录对应的授权目标
func internshipTarget(i *model.Internship) policy.Target {
	t := policy.Target{SupervisorEmail: i.SupervisorEmailValue()}
	if i.Intern != nil {
		t.InternEmail = i.Intern.Email
	}
	return t
}

// documentTarget 文档对应的授权目标
func documentTarget(d *model.Document) policy.Target {
	var t policy.Target
	if d.Internship != nil {
		t = internshipTarget(d.Internship)
	}
	t.UploaderID = stringValue(d.UploadedBy)
	return t
}

// purgeFiles 删除数据行之后清理磁盘文件；失败的文件成为孤儿，记 Warn 日志
func purgeFiles(ctx context.Context, store storage.Storage, docs []model.Document, logger *zap.Logger) {
	if store == nil {
		return
	}
	for i := range docs {
		if err := store.Delete(ctx, storage.Handle(docs[i].FilePath)); err != nil {
			logger.Warn("删除文档文件失败，文件成为孤儿",
				zap.String("document_id", docs[i].DocumentID),
				zap.String("path", docs[i].FilePath),
				zap.Error(err))
		}
	}
}

// documentsOf 级联删除前收集受影响的文档；repo 应为已加锁的事务仓储
func documentsOf(ctx context.Context, repo *repository.Repository, filter repository.DocumentFilter) ([]model.Document, error) {
	docs, _, err := repo.Document.List(ctx, filter, 0, 0)
	return docs, err
}
