package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/validation"
)

// ── 测试辅助 ──

func setupTestReportService() (ReportService, *mockRepos) {
	m := newMockRepos()
	m.seedAgreement(agreementID, "Acme Ltda", true)

	a := m.seedIntern("i-1", "ana@uni.br")
	a.Name = "Ana"
	a.CreatedAt = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

	b := m.seedIntern("i-2", "bruno@uni.br")
	b.Name = "Bruno"
	b.Course = "Administração"
	b.Status = model.InternInactive
	b.CreatedAt = time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)

	c := m.seedIntern("i-3", "carla@uni.br")
	c.Name = "Carla"
	c.CreatedAt = time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)

	m.seedInternship("s-1", "i-1", agreementID, model.InternshipInProgress, "2025-03-01", "2025-09-01")
	m.seedInternship("s-2", "i-2", agreementID, model.InternshipCanceled, "2025-04-01", "2025-10-01")
	m.seedInternship("s-3", "i-3", agreementID, model.InternshipInProgress, "2025-06-01", "2025-12-01")

	return NewReportService(m.repo, testClock(), nopLogger()), m
}

// ── 实习生报表 ──

func TestReportService_InternReport_InclusiveEndDate(t *testing.T) {
	svc, _ := setupTestReportService()

	resp, err := svc.InternReport(context.Background(), policy.Admin(), &dto.InternReportRequest{
		StartDate: "2025-03-01",
		EndDate:   "2025-03-31",
		Status:    dto.ReportStatusAll,
	})
	if err != nil {
		t.Fatalf("InternReport 失败: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("结束日期当天注册的也应计入，期望 2，实际 %d", resp.Total)
	}
}

func TestReportService_InternReport_StatusAndCourse(t *testing.T) {
	svc, _ := setupTestReportService()

	resp, err := svc.InternReport(context.Background(), policy.SupervisorOf("silva@uni.br"), &dto.InternReportRequest{
		StartDate: "2025-01-01",
		EndDate:   "2025-12-31",
		Status:    model.InternActive,
		Course:    "engenharia",
	})
	if err != nil {
		t.Fatalf("InternReport 失败: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("期望 2 名在读的工程类实习生，实际 %d", resp.Total)
	}
	for _, in := range resp.Interns {
		if in.Status != model.InternActive {
			t.Errorf("不应包含状态 %s", in.Status)
		}
	}
}

func TestReportService_InternReport_BadPeriod(t *testing.T) {
	svc, _ := setupTestReportService()

	tests := []struct {
		name       string
		start, end string
		kind       error
	}{
		{"缺少开始日期", "", "2025-01-31", validation.ErrRequired},
		{"日期格式", "2025/01/01", "2025-01-31", validation.ErrFormat},
		{"开始晚于结束", "2025-02-01", "2025-01-01", validation.ErrDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.InternReport(context.Background(), policy.Admin(), &dto.InternReportRequest{StartDate: tt.start, EndDate: tt.end})
			if !errors.Is(err, tt.kind) {
				t.Errorf("期望 %v，实际: %v", tt.kind, err)
			}
		})
	}
}

func TestReportService_InternDenied(t *testing.T) {
	svc, _ := setupTestReportService()

	_, err := svc.InternReport(context.Background(), policy.InternOf("ana@uni.br"), &dto.InternReportRequest{
		StartDate: "2025-01-01", EndDate: "2025-12-31",
	})
	if !errors.Is(err, policy.ErrPermissionDenied) {
		t.Fatalf("期望 ErrPermissionDenied，实际: %v", err)
	}
}

// ── 实习报表 ──

func TestReportService_InternshipReport(t *testing.T) {
	svc, _ := setupTestReportService()

	resp, err := svc.InternshipReport(context.Background(), policy.Admin(), &dto.InternshipReportRequest{
		StartDate: "2025-03-01",
		EndDate:   "2025-04-30",
		Status:    string(model.InternshipInProgress),
	})
	if err != nil {
		t.Fatalf("InternshipReport 失败: %v", err)
	}
	if resp.Total != 1 || resp.Internships[0].ID != "s-1" {
		t.Errorf("期望只有 s-1，实际 %d 条", resp.Total)
	}
	if resp.Internships[0].CompanyName != "Acme Ltda" {
		t.Errorf("应带出企业名，实际 %q", resp.Internships[0].CompanyName)
	}
}

// ── Excel 导出 ──

func TestReportService_ExportInterns(t *testing.T) {
	svc, _ := setupTestReportService()

	buf, filename, err := svc.ExportInterns(context.Background(), policy.Admin(), &dto.InternReportRequest{
		StartDate: "2025-01-01",
		EndDate:   "2025-12-31",
	})
	if err != nil {
		t.Fatalf("ExportInterns 失败: %v", err)
	}
	if filename != "实习生报表_2025-01-01_2025-12-31.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("生成的文件无法打开: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("实习生")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	// 标题 + 表头 + 3 行数据
	if len(rows) != 5 {
		t.Fatalf("期望 5 行，实际 %d", len(rows))
	}
	if rows[1][0] != "姓名" || rows[2][0] != "Ana" {
		t.Errorf("表头或首行数据不符: %v / %v", rows[1], rows[2])
	}
}

func TestReportService_ExportInternships(t *testing.T) {
	svc, _ := setupTestReportService()

	buf, _, err := svc.ExportInternships(context.Background(), policy.Admin(), &dto.InternshipReportRequest{
		StartDate: "2025-01-01",
		EndDate:   "2025-12-31",
		Status:    dto.ReportStatusAll,
	})
	if err != nil {
		t.Fatalf("ExportInternships 失败: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("生成的文件无法打开: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("实习")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("期望 5 行，实际 %d", len(rows))
	}
	if rows[2][1] != "Acme Ltda" {
		t.Errorf("企业列不符: %v", rows[2])
	}
}
