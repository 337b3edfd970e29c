package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/pkg/storage"
)

func setupTestAgreementService() (AgreementService, *mockRepos, *mockStorage) {
	m := newMockRepos()
	store := newMockStorage()
	return NewAgreementService(m.repo, store, testClock(), nil, nopLogger()), m, store
}

func TestAgreementService_Create_DuplicateTaxID(t *testing.T) {
	svc, m, _ := setupTestAgreementService()
	m.seedAgreement(agreementID, "Acme Ltda", true)

	_, err := svc.Create(context.Background(), policy.Admin(), &dto.CreateAgreementRequest{
		CompanyName: "Outra Ltda",
		TaxID:       "11.222.333/0001-81",
		Address:     "Rua B, 200",
		Phone:       "(11) 3333-5555",
		ContactName: "Fulano",
	})
	if !errors.Is(err, ErrAgreementDuplicate) {
		t.Fatalf("期望 ErrAgreementDuplicate，实际: %v", err)
	}
}

func TestAgreementService_Delete_SupervisorDenied(t *testing.T) {
	svc, m, _ := setupTestAgreementService()
	m.seedAgreement(agreementID, "Acme Ltda", true)

	if err := svc.Delete(context.Background(), policy.SupervisorOf("silva@uni.br"), agreementID); !errors.Is(err, policy.ErrPermissionDenied) {
		t.Fatalf("期望 ErrPermissionDenied，实际: %v", err)
	}
	if _, ok := m.agreements.agreements[agreementID]; !ok {
		t.Error("无权删除时协议应保留")
	}
}

func TestAgreementService_Delete_NotFound(t *testing.T) {
	svc, _, _ := setupTestAgreementService()

	if err := svc.Delete(context.Background(), policy.Admin(), "nope"); !errors.Is(err, ErrAgreementNotFound) {
		t.Fatalf("期望 ErrAgreementNotFound，实际: %v", err)
	}
}

func TestAgreementService_Delete_LocksThenPurges(t *testing.T) {
	svc, m, store := setupTestAgreementService()
	m.seedIntern(internID, internEmail)
	m.seedAgreement(agreementID, "Acme Ltda", true)
	m.seedAgreement("other-agreement", "Beta SA", true)
	m.seedInternship("s-1", internID, agreementID, model.InternshipFinished, "2024-01-01", "2024-06-30")
	m.seedInternship("s-2", internID, "other-agreement", model.InternshipInProgress, "2025-01-01", "2025-06-30")
	ctx := context.Background()

	h1, _, _ := store.Save(ctx, "documents/a/termo.pdf", strings.NewReader("%PDF"))
	h2, _, _ := store.Save(ctx, "documents/a/plano.pdf", strings.NewReader("%PDF"))
	_ = m.documents.Create(ctx, &model.Document{InternshipID: "s-1", FilePath: string(h1), FileName: "termo.pdf"})
	_ = m.documents.Create(ctx, &model.Document{InternshipID: "s-2", FilePath: string(h2), FileName: "plano.pdf"})

	if err := svc.Delete(ctx, policy.Admin(), agreementID); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if len(m.agreements.locked) != 1 || m.agreements.locked[0] != agreementID {
		t.Errorf("删除前应锁定协议，实际 %v", m.agreements.locked)
	}
	if len(m.internships.deleteLocks) != 1 || m.internships.deleteLocks[0] != "s-1" {
		t.Errorf("只应锁定该协议下的实习，实际 %v", m.internships.deleteLocks)
	}
	if _, ok := store.files[h1]; ok {
		t.Error("该协议下的文档文件应被清理")
	}
	if _, ok := store.files[storage.Handle("documents/a/plano.pdf")]; !ok {
		t.Error("其他协议的文档文件不应被清理")
	}
}
