package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/repository"
	"github.com/baratadiego/appestagio/internal/validation"
	"github.com/baratadiego/appestagio/pkg/timeutil"
)

// ── 报表模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ReportService 报表查询与 Excel 导出
type ReportService interface {
	InternReport(ctx context.Context, caller policy.Principal, req *dto.InternReportRequest) (*dto.InternReportResponse, error)
	InternshipReport(ctx context.Context, caller policy.Principal, req *dto.InternshipReportRequest) (*dto.InternshipReportResponse, error)
	// ExportInterns 返回 Excel 内容与建议文件名
	ExportInterns(ctx context.Context, caller policy.Principal, req *dto.InternReportRequest) (*bytes.Buffer, string, error)
	ExportInternships(ctx context.Context, caller policy.Principal, req *dto.InternshipReportRequest) (*bytes.Buffer, string, error)
}

type reportService struct {
	repo   *repository.Repository
	clock  clock
	logger *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, clk clock, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, clock: clk, logger: logger}
}

// ────────────────────── 实习生报表 ──────────────────────

// InternReport 按注册日期区间、状态（ALL 不限）与课程（包含匹配）筛选
func (s *reportService) InternReport(ctx context.Context, caller policy.Principal, req *dto.InternReportRequest) (*dto.InternReportResponse, error) {
	interns, err := s.interns(ctx, caller, req)
	if err != nil {
		return nil, err
	}
	today := s.clock.today()
	list := make([]dto.InternResponse, 0, len(interns))
	for i := range interns {
		list = append(list, toInternResponse(&interns[i], today))
	}
	return &dto.InternReportResponse{Filters: *req, Total: len(list), Interns: list}, nil
}

func (s *reportService) interns(ctx context.Context, caller policy.Principal, req *dto.InternReportRequest) ([]model.Intern, error) {
	if err := policy.Check(caller, policy.GenerateReport, policy.Target{}); err != nil {
		return nil, err
	}
	start, end, err := reportPeriod(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	filter := repository.InternFilter{
		CourseLike:  strings.TrimSpace(req.Course),
		CreatedFrom: &start,
		CreatedTo:   &end,
	}
	if req.Status != "" && req.Status != dto.ReportStatusAll {
		filter.Status = req.Status
	}

	interns, _, err := s.repo.Intern.List(ctx, filter, 0, 0)
	if err != nil {
		s.logger.Error("查询实习生报表失败", zap.Error(err))
		return nil, err
	}
	return interns, nil
}

// ────────────────────── 实习报表 ──────────────────────

// InternshipReport 按开始日期区间、状态（ALL 不限）与合作协议筛选
func (s *reportService) InternshipReport(ctx context.Context, caller policy.Principal, req *dto.InternshipReportRequest) (*dto.InternshipReportResponse, error) {
	internships, err := s.internships(ctx, caller, req)
	if err != nil {
		return nil, err
	}
	today := s.clock.today()
	list := make([]dto.InternshipResponse, 0, len(internships))
	for i := range internships {
		list = append(list, toInternshipResponse(&internships[i], today))
	}
	return &dto.InternshipReportResponse{Filters: *req, Total: len(list), Internships: list}, nil
}

func (s *reportService) internships(ctx context.Context, caller policy.Principal, req *dto.InternshipReportRequest) ([]model.Internship, error) {
	if err := policy.Check(caller, policy.GenerateReport, policy.Target{}); err != nil {
		return nil, err
	}
	start, end, err := reportPeriod(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	filter := repository.InternshipFilter{
		AgreementID: req.AgreementID,
		StartFrom:   &start,
		StartTo:     &end,
	}
	if req.Status != "" && req.Status != dto.ReportStatusAll {
		filter.Status = model.InternshipStatus(req.Status)
	}

	internships, _, err := s.repo.Internship.List(ctx, filter, 0, 0)
	if err != nil {
		s.logger.Error("查询实习报表失败", zap.Error(err))
		return nil, err
	}
	return internships, nil
}

// ────────────────────── Excel 导出 ──────────────────────

func (s *reportService) ExportInterns(ctx context.Context, caller policy.Principal, req *dto.InternReportRequest) (*bytes.Buffer, string, error) {
	interns, err := s.interns(ctx, caller, req)
	if err != nil {
		return nil, "", err
	}

	today := s.clock.today()
	header := []string{"姓名", "邮箱", "电话", "证件号", "出生日期", "年龄", "课程", "学期", "状态", "注册时间"}
	rows := make([][]interface{}, 0, len(interns))
	for i := range interns {
		in := &interns[i]
		rows = append(rows, []interface{}{
			in.Name, in.Email, in.Phone, in.NationalID,
			timeutil.Format(in.BirthDate), timeutil.AgeOn(in.BirthDate, today),
			in.Course, in.Term, in.Status,
			in.CreatedAt.In(s.clock.loc).Format("2006-01-02 15:04"),
		})
	}

	title := fmt.Sprintf("实习生报表 %s ~ %s", req.StartDate, req.EndDate)
	buf, err := s.writeSheet("实习生", title, header, []float64{20, 28, 16, 16, 12, 6, 24, 8, 10, 18}, rows)
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("实习生报表_%s_%s.xlsx", req.StartDate, req.EndDate), nil
}

func (s *reportService) ExportInternships(ctx context.Context, caller policy.Principal, req *dto.InternshipReportRequest) (*bytes.Buffer, string, error) {
	internships, err := s.internships(ctx, caller, req)
	if err != nil {
		return nil, "", err
	}

	header := []string{"实习生", "企业", "导师", "导师邮箱", "每周学时", "开始日期", "结束日期", "天数", "状态"}
	rows := make([][]interface{}, 0, len(internships))
	for i := range internships {
		it := &internships[i]
		var internName, company string
		if it.Intern != nil {
			internName = it.Intern.Name
		}
		if it.Agreement != nil {
			company = it.Agreement.CompanyName
		}
		rows = append(rows, []interface{}{
			internName, company, it.SupervisorName, it.SupervisorEmailValue(), it.WeeklyHours,
			timeutil.Format(it.StartDate), timeutil.Format(it.EndDate),
			timeutil.DaysBetween(it.StartDate, it.EndDate), string(it.Status),
		})
	}

	title := fmt.Sprintf("实习报表 %s ~ %s", req.StartDate, req.EndDate)
	buf, err := s.writeSheet("实习", title, header, []float64{20, 28, 20, 28, 10, 12, 12, 8, 14}, rows)
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("实习报表_%s_%s.xlsx", req.StartDate, req.EndDate), nil
}

// writeSheet 标题行合并居中，第二行为表头，之后为数据
func (s *reportService) writeSheet(sheetName, title string, header []string, widths []float64, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 13},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(len(header)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	// 表头
	for i, h := range header {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(header)-1), 2), headerStyle)

	// 数据行
	for r, row := range rows {
		if err := f.SetSheetRow(sheetName, cell("A", r+3), &row); err != nil {
			s.logger.Error("写入 Excel 行失败", zap.Int("row", r+3), zap.Error(err))
			return nil, ErrExportGenerateFail
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return buf, nil
}

// ── 辅助函数 ──

// reportPeriod 解析报表区间，结束日期按整天包含
func reportPeriod(startStr, endStr string) (time.Time, time.Time, error) {
	var errs validation.Errors
	start, err := validation.Date("start_date", startStr)
	errs.Add(err)
	end, err := validation.Date("end_date", endStr)
	errs.Add(err)
	if err := errs.Err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := validation.ReportPeriod(&start, &end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
