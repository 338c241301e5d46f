package handler

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/mgmassand/life-curriculum-assistant/logger"
	"github.com/mgmassand/life-curriculum-assistant/model"
	"github.com/mgmassand/life-curriculum-assistant/service"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) session(args mock.Arguments) (*service.Session, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Session), args.Error(1)
}

func (m *mockAuthService) Register(ctx context.Context, req model.RegisterRequest) (*service.Session, error) {
	return m.session(m.Called(ctx, req))
}

func (m *mockAuthService) Login(ctx context.Context, req model.LoginRequest) (*service.Session, error) {
	return m.session(m.Called(ctx, req))
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*service.Session, error) {
	return m.session(m.Called(ctx, refreshToken))
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *mockAuthService) VerifyEmail(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockAuthService) ResendVerification(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAuthService) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

type mockIdentity struct{ mock.Mock }

func (m *mockIdentity) ResolveRequired(ctx context.Context, accessToken string) (*model.User, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockIdentity) ResolveOptional(ctx context.Context, accessToken string) (*model.User, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type mockFamilyService struct{ mock.Mock }

func (m *mockFamilyService) GetFamily(ctx context.Context, user *model.User, familyID uuid.UUID) (*model.Family, error) {
	args := m.Called(ctx, user, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Family), args.Error(1)
}

func testUser() *model.User {
	return &model.User{
		ID:       uuid.New(),
		FamilyID: uuid.New(),
		Email:    "a@x.com",
		FullName: "Jane Doe",
		Role:     model.RoleAdmin,
		IsActive: true,
	}
}

func cookiesByName(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c
	}
	return out
}
