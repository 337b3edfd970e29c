package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/baratadiego/appestagio/internal/api/middleware"
	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/internal/policy"
	"github.com/baratadiego/appestagio/internal/service"
	"github.com/baratadiego/appestagio/internal/validation"
	pkgerrors "github.com/baratadiego/appestagio/pkg/errors"
	"github.com/baratadiego/appestagio/pkg/jwt"
	"github.com/baratadiego/appestagio/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ────────────────────── Mock Services ──────────────────────

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	meResult      *dto.UserResponse
	meErr         error

	logoutClaims  *jwt.Claims
	logoutRefresh string
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}

func (m *mockAuthService) Refresh(_ context.Context, _ string) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}

func (m *mockAuthService) Logout(_ context.Context, access *jwt.Claims, refreshToken string) error {
	m.logoutClaims = access
	m.logoutRefresh = refreshToken
	return nil
}

func (m *mockAuthService) Me(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}

func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return nil
}

func (m *mockAuthService) SeedAdmin(_ context.Context, _, _ string) error { return nil }

// mockInternshipService 只实现状态流转与查询，其它方法返回 nil
type mockInternshipService struct {
	service.InternshipService

	result *dto.InternshipResponse
	err    error

	lastCaller policy.Principal
	lastReason string
}

func (m *mockInternshipService) Create(_ context.Context, caller policy.Principal, _ *dto.CreateInternshipRequest) (*dto.InternshipResponse, error) {
	m.lastCaller = caller
	return m.result, m.err
}

func (m *mockInternshipService) GetByID(_ context.Context, caller policy.Principal, _ string) (*dto.InternshipResponse, error) {
	m.lastCaller = caller
	return m.result, m.err
}

func (m *mockInternshipService) Finish(_ context.Context, caller policy.Principal, _ string) (*dto.InternshipResponse, error) {
	m.lastCaller = caller
	return m.result, m.err
}

func (m *mockInternshipService) Cancel(_ context.Context, caller policy.Principal, _, reason string) (*dto.InternshipResponse, error) {
	m.lastCaller = caller
	m.lastReason = reason
	return m.result, m.err
}

func (m *mockInternshipService) Suspend(_ context.Context, caller policy.Principal, _, reason string) (*dto.InternshipResponse, error) {
	m.lastCaller = caller
	m.lastReason = reason
	return m.result, m.err
}

func (m *mockInternshipService) EndingSoon(_ context.Context, _ policy.Principal, days int) ([]dto.InternshipResponse, error) {
	return []dto.InternshipResponse{{ID: fmt.Sprintf("days-%d", days)}}, m.err
}

type mockNotificationService struct {
	service.NotificationService

	marked   int64
	internID string
}

func (m *mockNotificationService) MarkAllRead(_ context.Context, _ policy.Principal, internID string) (int64, error) {
	m.internID = internID
	return m.marked, nil
}

// ────────────────────── Test Helpers ──────────────────────

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// withAuth 模拟 JWT 中间件注入的上下文
func withAuth(role, email string, next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserID, "test-user-id")
		c.Set(middleware.CtxRole, role)
		c.Set(middleware.CtxEmail, email)
		c.Set(middleware.CtxClaims, &jwt.Claims{
			UserID:    "test-user-id",
			Role:      role,
			Email:     email,
			TokenType: jwt.TokenTypeAccess,
		})
		next(c)
	}
}

func serve(method, path, route string, h gin.HandlerFunc, body *bytes.Buffer) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r := gin.New()
	r.Handle(method, route, h)
	r.ServeHTTP(w, req)
	return w
}

// ────────────────────── AuthHandler ──────────────────────

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/login", "/auth/login", h.Login,
		jsonBody(dto.LoginRequest{Email: "admin@escola.com", Password: "Secret123"}))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("期望 code 0，实际 %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/login", "/auth/login", h.Login, bytes.NewBufferString("invalid json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidEmail(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/login", "/auth/login", h.Login,
		jsonBody(dto.LoginRequest{Email: "not-an-email", Password: "x"}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	w := serve("POST", "/auth/login", "/auth/login", h.Login,
		jsonBody(dto.LoginRequest{Email: "admin@escola.com", Password: "wrong"}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11001 {
		t.Errorf("期望错误码 11001，实际 %d", resp.Code)
	}
}

func TestAuthHandler_Login_Disabled(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrUserDisabled})

	w := serve("POST", "/auth/login", "/auth/login", h.Login,
		jsonBody(dto.LoginRequest{Email: "old@escola.com", Password: "Secret123"}))

	if w.Code != http.StatusForbidden {
		t.Errorf("期望 403，实际 %d", w.Code)
	}
}

func TestAuthHandler_Refresh_Invalid(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrInvalidRefreshToken})

	w := serve("POST", "/auth/refresh", "/auth/refresh", h.RefreshToken,
		jsonBody(dto.RefreshTokenRequest{RefreshToken: "stale"}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11003 {
		t.Errorf("期望错误码 11003，实际 %d", resp.Code)
	}
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/refresh", "/auth/refresh", h.RefreshToken, jsonBody(map[string]string{}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际 %d", w.Code)
	}
}

func TestAuthHandler_Logout_PassesClaimsAndRefresh(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/logout", "/auth/logout",
		withAuth(model.RoleAdmin, "admin@escola.com", h.Logout),
		jsonBody(dto.LogoutRequest{RefreshToken: "refresh-1"}))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if mock.logoutClaims == nil || mock.logoutClaims.UserID != "test-user-id" {
		t.Error("登出应传入当前 access token 的声明")
	}
	if mock.logoutRefresh != "refresh-1" {
		t.Errorf("期望 refresh-1，实际 %q", mock.logoutRefresh)
	}
}

func TestAuthHandler_Logout_NoBody(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/logout", "/auth/logout",
		withAuth(model.RoleIntern, "ana@escola.com", h.Logout), nil)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}
	if mock.logoutRefresh != "" {
		t.Errorf("无请求体时 refresh token 应为空，实际 %q", mock.logoutRefresh)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("GET", "/auth/me", "/auth/me", h.GetCurrentUser, nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际 %d", w.Code)
	}
}

func TestAuthHandler_Me_Success(t *testing.T) {
	mock := &mockAuthService{meResult: &dto.UserResponse{ID: "test-user-id", Name: "Admin"}}
	h := NewAuthHandler(mock)

	w := serve("GET", "/auth/me", "/auth/me",
		withAuth(model.RoleAdmin, "admin@escola.com", h.GetCurrentUser), nil)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}
}

// ────────────────────── InternshipHandler ──────────────────────

func TestInternshipHandler_Finish_Success(t *testing.T) {
	mock := &mockInternshipService{result: &dto.InternshipResponse{ID: "i-1", Status: string(model.InternshipFinished)}}
	h := NewInternshipHandler(mock)

	w := serve("POST", "/internships/i-1/finish", "/internships/:id/finish",
		withAuth(model.RoleSupervisor, "sup@empresa.com", h.Finish), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if mock.lastCaller.Kind != policy.KindSupervisor || mock.lastCaller.Email != "sup@empresa.com" {
		t.Errorf("调用者构造错误: %+v", mock.lastCaller)
	}
}

func TestInternshipHandler_Finish_InvalidTransition(t *testing.T) {
	mock := &mockInternshipService{err: fmt.Errorf("finish: %w", service.ErrInvalidTransition)}
	h := NewInternshipHandler(mock)

	w := serve("POST", "/internships/i-1/finish", "/internships/:id/finish",
		withAuth(model.RoleAdmin, "admin@escola.com", h.Finish), nil)

	if w.Code != http.StatusConflict {
		t.Errorf("期望 409，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 15005 {
		t.Errorf("期望错误码 15005，实际 %d", resp.Code)
	}
}

func TestInternshipHandler_Finish_NotFound(t *testing.T) {
	mock := &mockInternshipService{err: service.ErrInternshipNotFound}
	h := NewInternshipHandler(mock)

	w := serve("POST", "/internships/missing/finish", "/internships/:id/finish",
		withAuth(model.RoleAdmin, "admin@escola.com", h.Finish), nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际 %d", w.Code)
	}
}

func TestInternshipHandler_Finish_PermissionDenied(t *testing.T) {
	mock := &mockInternshipService{err: policy.ErrPermissionDenied}
	h := NewInternshipHandler(mock)

	w := serve("POST", "/internships/i-1/finish", "/internships/:id/finish",
		withAuth(model.RoleIntern, "ana@escola.com", h.Finish), nil)

	if w.Code != http.StatusForbidden {
		t.Errorf("期望 403，实际 %d", w.Code)
	}
}

func TestInternshipHandler_UnknownRole_Forbidden(t *testing.T) {
	mock := &mockInternshipService{result: &dto.InternshipResponse{ID: "i-1"}}
	h := NewInternshipHandler(mock)

	w := serve("GET", "/internships/i-1", "/internships/:id",
		withAuth("guest", "x@y.com", h.GetInternship), nil)

	if w.Code != http.StatusForbidden {
		t.Errorf("未知角色期望 403，实际 %d", w.Code)
	}
}

func TestInternshipHandler_Cancel_WithReason(t *testing.T) {
	mock := &mockInternshipService{result: &dto.InternshipResponse{ID: "i-1", Status: string(model.InternshipCanceled)}}
	h := NewInternshipHandler(mock)

	w := serve("POST", "/internships/i-1/cancel", "/internships/:id/cancel",
		withAuth(model.RoleAdmin, "admin@escola.com", h.Cancel),
		jsonBody(dto.ReasonRequest{Reason: "empresa encerrou o programa"}))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if mock.lastReason != "empresa encerrou o programa" {
		t.Errorf("原因未传递: %q", mock.lastReason)
	}
}

func TestInternshipHandler_Suspend_NoBody(t *testing.T) {
	mock := &mockInternshipService{result: &dto.InternshipResponse{ID: "i-1", Status: string(model.InternshipSuspended)}}
	h := NewInternshipHandler(mock)

	w := serve("POST", "/internships/i-1/suspend", "/internships/:id/suspend",
		withAuth(model.RoleAdmin, "admin@escola.com", h.Suspend), nil)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}
	if mock.lastReason != "" {
		t.Errorf("无请求体时原因应为空，实际 %q", mock.lastReason)
	}
}

func TestInternshipHandler_Create_ValidationDetails(t *testing.T) {
	var errs validation.Errors
	errs.Add(&validation.FieldError{Kind: validation.ErrDuration, Field: "end_date", Message: "期限不能超过 2 年"})
	mock := &mockInternshipService{err: errs.Err()}
	h := NewInternshipHandler(mock)

	w := serve("POST", "/internships", "/internships",
		withAuth(model.RoleAdmin, "admin@escola.com", h.CreateInternship),
		jsonBody(dto.CreateInternshipRequest{
			InternID:       "3f1c2a8e-7b7e-4c1e-9d7e-2a1b3c4d5e6f",
			AgreementID:    "5a6b7c8d-1e2f-4a3b-8c9d-0e1f2a3b4c5d",
			SupervisorName: "Maria Souza",
			WeeklyHours:    30,
			StartDate:      "2024-01-01",
			EndDate:        "2027-01-01",
		}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("期望 400，实际 %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != codeValidation {
		t.Errorf("期望错误码 %d，实际 %d", codeValidation, resp.Code)
	}
	if resp.Details != "end_date" {
		t.Errorf("期望 details=end_date，实际 %q", resp.Details)
	}
}

func TestInternshipHandler_Create_OverlapConflict(t *testing.T) {
	mock := &mockInternshipService{err: &validation.FieldError{
		Kind: validation.ErrConflict, Field: "start_date", Message: "与已有实习期间重叠",
	}}
	h := NewInternshipHandler(mock)

	w := serve("POST", "/internships", "/internships",
		withAuth(model.RoleAdmin, "admin@escola.com", h.CreateInternship),
		jsonBody(dto.CreateInternshipRequest{
			InternID:       "3f1c2a8e-7b7e-4c1e-9d7e-2a1b3c4d5e6f",
			AgreementID:    "5a6b7c8d-1e2f-4a3b-8c9d-0e1f2a3b4c5d",
			SupervisorName: "Maria Souza",
			WeeklyHours:    30,
			StartDate:      "2024-01-01",
			EndDate:        "2024-06-30",
		}))

	if w.Code != http.StatusConflict {
		t.Errorf("期望 409，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Details != "start_date" {
		t.Errorf("期望 details=start_date，实际 %q", resp.Details)
	}
}

func TestInternshipHandler_GetInternship_StaleVersion(t *testing.T) {
	mock := &mockInternshipService{err: pkgerrors.ErrOptimisticLock}
	h := NewInternshipHandler(mock)

	w := serve("GET", "/internships/i-1", "/internships/:id",
		withAuth(model.RoleAdmin, "admin@escola.com", h.GetInternship), nil)

	if w.Code != http.StatusConflict {
		t.Errorf("期望 409，实际 %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != codeStaleVersion {
		t.Errorf("期望错误码 %d，实际 %d", codeStaleVersion, resp.Code)
	}
}

func TestInternshipHandler_UnexpectedError_500(t *testing.T) {
	mock := &mockInternshipService{err: fmt.Errorf("connection reset")}
	h := NewInternshipHandler(mock)

	w := serve("GET", "/internships/i-1", "/internships/:id",
		withAuth(model.RoleAdmin, "admin@escola.com", h.GetInternship), nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("期望 500，实际 %d", w.Code)
	}
}

func TestInternshipHandler_EndingSoon_Days(t *testing.T) {
	h := NewInternshipHandler(&mockInternshipService{})

	tests := []struct {
		query  string
		status int
		id     string
	}{
		{"", http.StatusOK, "days-30"},
		{"?days=7", http.StatusOK, "days-7"},
		{"?days=-1", http.StatusBadRequest, ""},
		{"?days=abc", http.StatusBadRequest, ""},
		{"?days=366", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		w := serve("GET", "/internships/ending-soon"+tt.query, "/internships/ending-soon",
			withAuth(model.RoleAdmin, "admin@escola.com", h.EndingSoon), nil)
		if w.Code != tt.status {
			t.Errorf("%q: 期望 %d，实际 %d", tt.query, tt.status, w.Code)
			continue
		}
		if tt.id == "" {
			continue
		}
		if !bytes.Contains(w.Body.Bytes(), []byte(tt.id)) {
			t.Errorf("%q: 响应中应包含 %s", tt.query, tt.id)
		}
	}
}

// ────────────────────── NotificationHandler ──────────────────────

func TestNotificationHandler_MarkAllRead(t *testing.T) {
	mock := &mockNotificationService{marked: 3}
	h := NewNotificationHandler(mock)

	w := serve("PUT", "/notifications/read-all", "/notifications/read-all",
		withAuth(model.RoleAdmin, "admin@escola.com", h.MarkAllRead),
		jsonBody(dto.MarkAllReadRequest{InternID: "3f1c2a8e-7b7e-4c1e-9d7e-2a1b3c4d5e6f"}))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if mock.internID != "3f1c2a8e-7b7e-4c1e-9d7e-2a1b3c4d5e6f" {
		t.Errorf("intern_id 未传递: %q", mock.internID)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"count":3`)) {
		t.Errorf("响应应包含 count=3: %s", w.Body.String())
	}
}

// ────────────────────── handleCommonError ──────────────────────

func TestHandleCommonError_NotFound(t *testing.T) {
	w := serve("GET", "/x", "/x", func(c *gin.Context) {
		handleCommonError(c, fmt.Errorf("agreement: %w", pkgerrors.ErrNotFound))
	}, nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际 %d", w.Code)
	}
}

func TestHandleCommonError_BodyTooLarge(t *testing.T) {
	w := serve("GET", "/x", "/x", func(c *gin.Context) {
		handleCommonError(c, &http.MaxBytesError{Limit: 10})
	}, nil)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际 %d", w.Code)
	}
}
