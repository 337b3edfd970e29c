package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/internal/validation"
	pkgerrors "github.com/baratadiego/appestagio/pkg/errors"
	"github.com/baratadiego/appestagio/pkg/storage"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// ── 实习生模块业务错误 ──

var (
	ErrInternNotFound  = fmt.Errorf("实习生%w", pkgerrors.ErrNotFound)
	ErrInternDuplicate = errors.New("邮箱或证件号已被其他实习生使用")
)

// InternService 实习生业务接口
type InternService interface {
	Create(ctx context.Context, caller policy.Principal, req *dto.CreateInternRequest) (*dto.InternResponse, error)
	GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.InternResponse, error)
	List(ctx context.Context, caller policy.Principal, req *dto.InternListRequest) ([]dto.InternResponse, int64, error)
	Update(ctx context.Context, caller policy.Principal, id string, req *dto.UpdateInternRequest) (*dto.InternResponse, error)
	Delete(ctx context.Context, caller policy.Principal, id string) error
	ListActive(ctx context.Context, caller policy.Principal) ([]dto.InternResponse, error)
	Internships(ctx context.Context, caller policy.Principal, id string) ([]dto.InternshipResponse, error)
	Notifications(ctx context.Context, caller policy.Principal, id string) ([]dto.NotificationResponse, error)
	Stats(ctx context.Context, caller policy.Principal) (*dto.InternStatsResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportInternRow, error)
	Import(ctx context.Context, caller policy.Principal, rows []ImportInternRow) (*dto.ImportInternResponse, error)
}

// ImportInternRow Excel 导入解析后的单行数据
type ImportInternRow struct {
	Row        int
	Name       string
	Email      string
	Phone      string
	NationalID string
	BirthDate  string
	Course     string
	Term       string
}

type internService struct {
	repo   *repository.Repository
	store  storage.Storage
	clock  clock
	hook   statsHook
	logger *zap.Logger
}

// NewInternService 创建 InternService 实例
func NewInternService(repo *repository.Repository, store storage.Storage, clk clock, stats StatisticsService, logger *zap.Logger) InternService {
	return &internService{
		repo:   repo,
		store:  store,
		clock:  clk,
		hook:   statsHook{stats: stats, logger: logger},
		logger: logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *internService) Create(ctx context.Context, caller policy.Principal, req *dto.CreateInternRequest) (*dto.InternResponse, error) {
	if err := policy.Check(caller, policy.ManageIntern, policy.Target{}); err != nil {
		return nil, err
	}

	intern := &model.Intern{
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Phone:      req.Phone,
		NationalID: req.NationalID,
		Course:     strings.TrimSpace(req.Course),
		Term:       strings.TrimSpace(req.Term),
		Status:     model.InternActive,
	}
	if req.Status != "" {
		intern.Status = req.Status
	}

	var errs validation.Errors
	birth, err := validation.Date("birth_date", req.BirthDate)
	errs.Add(err)
	intern.BirthDate = birth
	if err == nil {
		errs.Add(s.validate(intern))
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, intern.Email, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Intern.Create(ctx, intern); err != nil {
		if isDuplicate(err) {
			return nil, ErrInternDuplicate
		}
		s.logger.Error("创建实习生失败", zap.Error(err))
		return nil, err
	}

	s.hook.refresh(ctx)
	resp := toInternResponse(intern, s.clock.today())
	return &resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *internService) GetByID(ctx context.Context, caller policy.Principal, id string) (*dto.InternResponse, error) {
	intern, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ViewIntern, policy.Target{InternEmail: intern.Email}); err != nil {
		return nil, err
	}
	resp := toInternResponse(intern, s.clock.today())
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *internService) List(ctx context.Context, caller policy.Principal, req *dto.InternListRequest) ([]dto.InternResponse, int64, error) {
	if err := policy.Check(caller, policy.ViewIntern, policy.Target{InternEmail: caller.Email}); err != nil {
		return nil, 0, err
	}

	filter := repository.InternFilter{
		Status: req.Status,
		Course: req.Course,
		Search: strings.TrimSpace(req.Search),
	}
	// 实习生只能看到自己
	if caller.Kind == policy.KindIntern {
		filter.Email = caller.Email
	}

	interns, total, err := s.repo.Intern.List(ctx, filter, req.Offset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出实习生失败", zap.Error(err))
		return nil, 0, err
	}
	return s.toResponses(interns), total, nil
}

// ListActive 全部在册实习生，不分页
func (s *internService) ListActive(ctx context.Context, caller policy.Principal) ([]dto.InternResponse, error) {
	if err := policy.Check(caller, policy.ViewIntern, policy.Target{}); err != nil {
		return nil, err
	}
	interns, _, err := s.repo.Intern.List(ctx, repository.InternFilter{Status: model.InternActive}, 0, 0)
	if err != nil {
		s.logger.Error("列出在册实习生失败", zap.Error(err))
		return nil, err
	}
	return s.toResponses(interns), nil
}

// ────────────────────── Update ──────────────────────

func (s *internService) Update(ctx context.Context, caller policy.Principal, id string, req *dto.UpdateInternRequest) (*dto.InternResponse, error) {
	if err := policy.Check(caller, policy.ManageIntern, policy.Target{}); err != nil {
		return nil, err
	}
	intern, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var errs validation.Errors
	if req.Name != nil {
		intern.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		intern.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		intern.Phone = *req.Phone
	}
	if req.NationalID != nil {
		intern.NationalID = *req.NationalID
	}
	if req.BirthDate != nil {
		birth, err := validation.Date("birth_date", *req.BirthDate)
		if err == nil {
			err = validation.Age(birth, s.clock.today())
		}
		errs.Add(err)
		intern.BirthDate = birth
	}
	if req.Course != nil {
		intern.Course = strings.TrimSpace(*req.Course)
	}
	if req.Term != nil {
		intern.Term = strings.TrimSpace(*req.Term)
	}
	if req.Status != nil {
		intern.Status = *req.Status
	}

	errs.Add(validation.InternFields(internInput(intern)))
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if req.Email != nil {
		if err := s.ensureEmailFree(ctx, intern.Email, intern.InternID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Intern.Update(ctx, intern); err != nil {
		if isDuplicate(err) {
			return nil, ErrInternDuplicate
		}
		s.logger.Error("更新实习生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Status != nil {
		s.hook.refresh(ctx)
	}
	resp := toInternResponse(intern, s.clock.today())
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 级联删除实习记录、文档与通知。先锁实习生与其实习，
// 阻塞并发的新建与上传，再在同一事务中收集文档路径并删除；文件在提交后清理
func (s *internService) Delete(ctx context.Context, caller policy.Principal, id string) error {
	if err := policy.Check(caller, policy.ManageIntern, policy.Target{}); err != nil {
		return err
	}

	var docs []model.Document
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Intern.LockForUpdate(ctx, id); err != nil {
			return err
		}
		if _, err := tx.Internship.LockForDelete(ctx, repository.DeleteScope{InternID: id}); err != nil {
			return err
		}
		var err error
		if docs, err = documentsOf(ctx, tx, repository.DocumentFilter{InternID: id}); err != nil {
			return err
		}
		return tx.Intern.Delete(ctx, id)
	})
	if err != nil {
		if isNotFound(err) {
			return ErrInternNotFound
		}
		s.logger.Error("删除实习生失败", zap.String("id", id), zap.Error(err))
		return err
	}

	purgeFiles(ctx, s.store, docs, s.logger)
	s.hook.refresh(ctx)
	return nil
}

// ────────────────────── 关联查询 ──────────────────────

func (s *internService) Internships(ctx context.Context, caller policy.Principal, id string) ([]dto.InternshipResponse, error) {
	intern, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ViewInternship, policy.Target{InternEmail: intern.Email}); err != nil {
		return nil, err
	}

	internships, _, err := s.repo.Internship.List(ctx, repository.InternshipFilter{InternID: id}, 0, 0)
	if err != nil {
		s.logger.Error("查询实习生的实习记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	today := s.clock.today()
	result := make([]dto.InternshipResponse, 0, len(internships))
	for i := range internships {
		result = append(result, toInternshipResponse(&internships[i], today))
	}
	return result, nil
}

func (s *internService) Notifications(ctx context.Context, caller policy.Principal, id string) ([]dto.NotificationResponse, error) {
	intern, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(caller, policy.ViewNotification, policy.Target{InternEmail: intern.Email}); err != nil {
		return nil, err
	}

	list, _, err := s.repo.Notification.List(ctx, repository.NotificationFilter{InternID: id}, 0, 0)
	if err != nil {
		s.logger.Error("查询实习生通知失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		result = append(result, toNotificationResponse(&list[i]))
	}
	return result, nil
}

// Stats 按状态与课程统计实习生
func (s *internService) Stats(ctx context.Context, caller policy.Principal) (*dto.InternStatsResponse, error) {
	if err := policy.Check(caller, policy.ViewIntern, policy.Target{}); err != nil {
		return nil, err
	}

	total, err := s.repo.Intern.Count(ctx, repository.InternFilter{})
	if err != nil {
		s.logger.Error("统计实习生失败", zap.Error(err))
		return nil, err
	}
	active, err := s.repo.Intern.Count(ctx, repository.InternFilter{Status: model.InternActive})
	if err != nil {
		s.logger.Error("统计在册实习生失败", zap.Error(err))
		return nil, err
	}
	rows, err := s.repo.Intern.CountByCourse(ctx)
	if err != nil {
		s.logger.Error("按课程统计实习生失败", zap.Error(err))
		return nil, err
	}

	byCourse := make([]dto.CourseCount, 0, len(rows))
	for _, r := range rows {
		byCourse = append(byCourse, dto.CourseCount{Course: r.Key, Total: r.Total})
	}
	return &dto.InternStatsResponse{
		Total:    total,
		Active:   active,
		Inactive: total - active,
		ByCourse: byCourse,
	}, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel 文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel 表头缺少必要列（姓名/邮箱/电话/证件号/出生日期/课程/学期）")
)

var importColumns = []string{"name", "email", "phone", "national_id", "birth_date", "course", "term"}

// ParseImportFile 解析导入 Excel 文件，第一行为表头，列序不限
func (s *internService) ParseImportFile(reader io.Reader) ([]ImportInternRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析 Excel 文件: %w", err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseHeaderIndex(excelRows[0])
	for _, col := range importColumns {
		if colIndex[col] < 0 {
			return nil, ErrImportBadHeader
		}
	}

	var rows []ImportInternRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		value := func(col string) string {
			if idx := colIndex[col]; idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		item := ImportInternRow{
			Row:        i + 1,
			Name:       value("name"),
			Email:      value("email"),
			Phone:      value("phone"),
			NationalID: value("national_id"),
			BirthDate:  value("birth_date"),
			Course:     value("course"),
			Term:       value("term"),
		}
		if item == (ImportInternRow{Row: item.Row}) {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 表头列名 → 列索引，缺失的列为 -1
func parseHeaderIndex(header []string) map[string]int {
	aliases := map[string]string{
		"姓名": "name", "name": "name",
		"邮箱": "email", "email": "email",
		"电话": "phone", "phone": "phone",
		"证件号": "national_id", "national_id": "national_id",
		"出生日期": "birth_date", "birth_date": "birth_date",
		"课程": "course", "course": "course",
		"学期": "term", "term": "term",
	}
	idx := make(map[string]int, len(importColumns))
	for _, col := range importColumns {
		idx[col] = -1
	}
	for i, h := range header {
		if col, ok := aliases[strings.ToLower(strings.TrimSpace(h))]; ok {
			idx[col] = i
		}
	}
	return idx
}

// ────────────────────── Import ──────────────────────

// Import 先逐行校验，再在一个事务中写入全部通过校验的行
func (s *internService) Import(ctx context.Context, caller policy.Principal, rows []ImportInternRow) (*dto.ImportInternResponse, error) {
	if err := policy.Check(caller, policy.ManageIntern, policy.Target{}); err != nil {
		return nil, err
	}

	resp := &dto.ImportInternResponse{Total: len(rows)}
	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row, Reason: reason})
	}

	// 第一阶段：逐行校验，不写库
	var valid []*model.Intern
	seenEmail := make(map[string]bool)
	seenNationalID := make(map[string]bool)
	for _, row := range rows {
		birth, err := validation.Date("birth_date", row.BirthDate)
		if err != nil {
			fail(row.Row, err.Error())
			continue
		}
		intern := &model.Intern{
			Name:       row.Name,
			Email:      row.Email,
			Phone:      row.Phone,
			NationalID: row.NationalID,
			BirthDate:  birth,
			Course:     row.Course,
			Term:       row.Term,
			Status:     model.InternActive,
		}
		if err := s.validate(intern); err != nil {
			fail(row.Row, err.Error())
			continue
		}

		emailKey := strings.ToLower(intern.Email)
		if seenEmail[emailKey] || seenNationalID[intern.NationalID] {
			fail(row.Row, "与文件中前面的行重复")
			continue
		}
		if _, err := s.repo.Intern.GetByEmail(ctx, intern.Email); err == nil {
			fail(row.Row, fmt.Sprintf("邮箱已存在: %s", intern.Email))
			continue
		} else if !isNotFound(err) {
			s.logger.Error("查询实习生失败", zap.Error(err))
			return nil, err
		}
		seenEmail[emailKey] = true
		seenNationalID[intern.NationalID] = true
		valid = append(valid, intern)
	}

	// 第二阶段：事务中批量写入，任一失败全部回滚
	if len(valid) > 0 {
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			for _, intern := range valid {
				if err := tx.Intern.Create(ctx, intern); err != nil {
					if isDuplicate(err) {
						return fmt.Errorf("%w: %s", ErrInternDuplicate, intern.Email)
					}
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("导入实习生写入失败，事务回滚", zap.Error(err))
			return nil, err
		}
		resp.Success = len(valid)
		s.hook.refresh(ctx)
	}

	return resp, nil
}

// ── 内部辅助方法 ──

func (s *internService) get(ctx context.Context, id string) (*model.Intern, error) {
	intern, err := s.repo.Intern.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInternNotFound
		}
		s.logger.Error("查询实习生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return intern, nil
}

// validate 新建时的完整校验，含年龄区间
func (s *internService) validate(intern *model.Intern) error {
	return validation.Intern(internInput(intern), s.clock.today())
}

func internInput(intern *model.Intern) validation.InternInput {
	return validation.InternInput{
		Name:       intern.Name,
		Email:      intern.Email,
		Phone:      intern.Phone,
		NationalID: intern.NationalID,
		BirthDate:  intern.BirthDate,
		Course:     intern.Course,
		Term:       intern.Term,
	}
}

// ensureEmailFree 邮箱未被其他实习生占用；selfID 为当前记录
func (s *internService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.Intern.GetByEmail(ctx, email)
	if err == nil && existing.InternID != selfID {
		return ErrInternDuplicate
	}
	if err != nil && !isNotFound(err) {
		s.logger.Error("查询实习生失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *internService) toResponses(interns []model.Intern) []dto.InternResponse {
	today := s.clock.today()
	result := make([]dto.InternResponse, 0, len(interns))
	for i := range interns {
		result = append(result, toInternResponse(&interns[i], today))
	}
	return result
}

func toInternResponse(i *model.Intern, today time.Time) dto.InternResponse {
	return dto.InternResponse{
		ID:         i.InternID,
		Name:       i.Name,
		Email:      i.Email,
		Phone:      i.Phone,
		NationalID: i.NationalID,
		BirthDate:  timeutil.Format(i.BirthDate),
		Age:        timeutil.AgeOn(i.BirthDate, today),
		Course:     i.Course,
		Term:       i.Term,
		Status:     i.Status,
		CreatedAt:  formatTime(i.CreatedAt),
		UpdatedAt:  formatTime(i.UpdatedAt),
	}
}
