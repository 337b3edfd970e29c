package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/baratadiego/appestagio/config"
	"github.com/baratadiego/appestagio/internal/dto"
	"github.com/baratadiego/appestagio/internal/model"
	"github.com/baratadiego/appestagio/pkg/jwt"
)

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	revoked map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── 测试辅助 ──

func setupTestAuthService() (AuthService, *mockRepos, *jwt.Manager, *mockBlacklist) {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
	m := newMockRepos()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	bl := newMockBlacklist()
	return NewAuthService(cfg, m.repo, jwtMgr, bl, nopLogger()), m, jwtMgr, bl
}

func createTestUser(m *mockRepos, email, password, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &model.User{
		Name:         "Teste",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	_ = m.users.Create(context.Background(), u)
	return u
}

// ── Login ──

func TestLogin_Success(t *testing.T) {
	svc, m, jwtMgr, _ := setupTestAuthService()
	createTestUser(m, "admin@uni.br", "Senha1234", model.RoleAdmin)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "admin@uni.br", Password: "Senha1234"})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("Token 不应为空")
	}
	if resp.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际 %d", resp.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 无法解析: %v", err)
	}
	if claims.Role != model.RoleAdmin || claims.Email != "admin@uni.br" {
		t.Errorf("声明不符: %+v", claims)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	createTestUser(m, "admin@uni.br", "Senha1234", model.RoleAdmin)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "admin@uni.br", Password: "errada"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "ninguem@uni.br", Password: "Senha1234"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_Disabled(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	u := createTestUser(m, "off@uni.br", "Senha1234", model.RoleSupervisor)
	m.users.users[u.UserID].IsActive = false

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "off@uni.br", Password: "Senha1234"})
	if !errors.Is(err, ErrUserDisabled) {
		t.Errorf("期望 ErrUserDisabled，实际: %v", err)
	}
}

func TestLogin_InternCarriesInternID(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	createTestUser(m, internEmail, "Senha1234", model.RoleIntern)
	m.seedIntern(internID, internEmail)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: internEmail, Password: "Senha1234"})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}
	if resp.User.InternID != internID {
		t.Errorf("期望 InternID=%s，实际 %q", internID, resp.User.InternID)
	}
}

// ── Refresh / Logout ──

func TestRefresh_RotatesToken(t *testing.T) {
	svc, m, _, bl := setupTestAuthService()
	createTestUser(m, "admin@uni.br", "Senha1234", model.RoleAdmin)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@uni.br", Password: "Senha1234"})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh 失败: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("应签发新的 AccessToken")
	}
	if len(bl.revoked) != 1 {
		t.Errorf("旧 RefreshToken 应加入黑名单，实际 %d 条", len(bl.revoked))
	}

	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("已使用的 RefreshToken 不能再次使用，实际: %v", err)
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	createTestUser(m, "admin@uni.br", "Senha1234", model.RoleAdmin)
	ctx := context.Background()

	login, _ := svc.Login(ctx, &dto.LoginRequest{Email: "admin@uni.br", Password: "Senha1234"})
	if _, err := svc.Refresh(ctx, login.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("AccessToken 不能用于刷新，实际: %v", err)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	if _, err := svc.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("期望 ErrInvalidRefreshToken，实际: %v", err)
	}
}

func TestLogout_RevokesBothTokens(t *testing.T) {
	svc, m, jwtMgr, bl := setupTestAuthService()
	createTestUser(m, "admin@uni.br", "Senha1234", model.RoleAdmin)
	ctx := context.Background()

	login, _ := svc.Login(ctx, &dto.LoginRequest{Email: "admin@uni.br", Password: "Senha1234"})
	access, _ := jwtMgr.ParseToken(login.AccessToken)

	if err := svc.Logout(ctx, access, login.RefreshToken); err != nil {
		t.Fatalf("Logout 失败: %v", err)
	}
	if ttl, ok := bl.revoked[access.ID]; !ok || ttl <= 0 || ttl > 15*time.Minute {
		t.Errorf("AccessToken 应以剩余有效期加入黑名单，实际 %v", ttl)
	}
	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("登出后 RefreshToken 应失效，实际: %v", err)
	}
}

// ── Me / ChangePassword / SeedAdmin ──

func TestMe_NotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	u := createTestUser(m, "admin@uni.br", "Senha1234", model.RoleAdmin)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, u.UserID, &dto.ChangePasswordRequest{OldPassword: "errada", NewPassword: "NovaSenha99"})
	if !errors.Is(err, ErrWrongPassword) {
		t.Errorf("期望 ErrWrongPassword，实际: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.UserID, &dto.ChangePasswordRequest{OldPassword: "Senha1234", NewPassword: "NovaSenha99"}); err != nil {
		t.Fatalf("ChangePassword 失败: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@uni.br", Password: "NovaSenha99"}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	svc, m, _, _ := setupTestAuthService()
	ctx := context.Background()

	if err := svc.SeedAdmin(ctx, "root@uni.br", "Senha1234"); err != nil {
		t.Fatalf("SeedAdmin 失败: %v", err)
	}
	if err := svc.SeedAdmin(ctx, "root@uni.br", "OutraSenha1"); err != nil {
		t.Fatalf("重复 SeedAdmin 失败: %v", err)
	}
	if len(m.users.users) != 1 {
		t.Fatalf("期望 1 个账号，实际 %d", len(m.users.users))
	}
	// 已存在时不覆盖密码
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "root@uni.br", Password: "Senha1234"}); err != nil {
		t.Errorf("应保留首次设置的密码: %v", err)
	}
}
