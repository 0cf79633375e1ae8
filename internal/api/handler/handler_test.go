package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/model"
	"accommodation-portal/internal/policy"
	"accommodation-portal/internal/service"
	pkgerrors "accommodation-portal/pkg/errors"
	"accommodation-portal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult      *dto.TokenResponse
	loginErr         error
	refreshResult    *dto.TokenResponse
	refreshErr       error
	refreshToken     string
	logoutErr        error
	logoutJTI        string
	logoutUser       string
	getCurrentResult *dto.UserResponse
	getCurrentErr    error
	changePassErr    error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	m.refreshToken = req.RefreshToken
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, userID, jti string, _ time.Time) error {
	m.logoutUser = userID
	m.logoutJTI = jti
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.getCurrentResult, m.getCurrentErr
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}

// ── Mock AllocationService ──

type mockAllocationService struct {
	result    *dto.AllocationResponse
	err       error
	list      []dto.AllocationResponse
	total     int64
	principal policy.Principal
	listReq   *dto.AllocationListRequest
	mineReq   *dto.MyAllocationsRequest
}

func (m *mockAllocationService) Create(_ context.Context, p policy.Principal, _ *dto.CreateAllocationRequest) (*dto.AllocationResponse, error) {
	m.principal = p
	return m.result, m.err
}
func (m *mockAllocationService) GetByID(_ context.Context, p policy.Principal, _ int64) (*dto.AllocationResponse, error) {
	m.principal = p
	return m.result, m.err
}
func (m *mockAllocationService) List(_ context.Context, p policy.Principal, req *dto.AllocationListRequest) ([]dto.AllocationResponse, int64, error) {
	m.principal = p
	m.listReq = req
	return m.list, m.total, m.err
}
func (m *mockAllocationService) ListMine(_ context.Context, p policy.Principal, req *dto.MyAllocationsRequest) ([]dto.AllocationResponse, error) {
	m.principal = p
	m.mineReq = req
	return m.list, m.err
}
func (m *mockAllocationService) Deactivate(_ context.Context, p policy.Principal, _ int64) (*dto.AllocationResponse, error) {
	m.principal = p
	return m.result, m.err
}
func (m *mockAllocationService) Reactivate(_ context.Context, p policy.Principal, _ int64) (*dto.AllocationResponse, error) {
	m.principal = p
	return m.result, m.err
}
func (m *mockAllocationService) AvailableRooms(_ context.Context, _ *dto.AvailableRoomsRequest) ([]dto.RoomResponse, error) {
	return nil, m.err
}
func (m *mockAllocationService) ReconcileRooms(_ context.Context) (*dto.ReconcileRoomsResponse, error) {
	return &dto.ReconcileRoomsResponse{}, m.err
}

// ── Mock AllocationRequestService ──

type mockRequestService struct {
	result     *dto.AllocationRequestResponse
	err        error
	approveReq *dto.ApproveAllocationRequest
	lastID     int64
}

func (m *mockRequestService) Submit(_ context.Context, _ policy.Principal, _ *dto.SubmitAllocationRequest) (*dto.AllocationRequestResponse, error) {
	return m.result, m.err
}
func (m *mockRequestService) GetByID(_ context.Context, _ policy.Principal, id int64) (*dto.AllocationRequestResponse, error) {
	m.lastID = id
	return m.result, m.err
}
func (m *mockRequestService) List(_ context.Context, _ policy.Principal, _ *dto.AllocationRequestListRequest) ([]dto.AllocationRequestResponse, int64, error) {
	return nil, 0, m.err
}
func (m *mockRequestService) ListPending(_ context.Context, _ policy.Principal, _ *dto.PaginationRequest) ([]dto.AllocationRequestResponse, int64, error) {
	return nil, 0, m.err
}
func (m *mockRequestService) ListMine(_ context.Context, _ policy.Principal) ([]dto.AllocationRequestResponse, error) {
	return nil, m.err
}
func (m *mockRequestService) Update(_ context.Context, _ policy.Principal, id int64, _ *dto.UpdateAllocationRequestRequest) (*dto.AllocationRequestResponse, error) {
	m.lastID = id
	return m.result, m.err
}
func (m *mockRequestService) Approve(_ context.Context, _ policy.Principal, id int64, req *dto.ApproveAllocationRequest) (*dto.AllocationRequestResponse, error) {
	m.lastID = id
	m.approveReq = req
	return m.result, m.err
}
func (m *mockRequestService) Reject(_ context.Context, _ policy.Principal, id int64, _ *dto.RejectAllocationRequest) (*dto.AllocationRequestResponse, error) {
	m.lastID = id
	return m.result, m.err
}
func (m *mockRequestService) Cancel(_ context.Context, _ policy.Principal, id int64) (*dto.AllocationRequestResponse, error) {
	m.lastID = id
	return m.result, m.err
}

// ── Mock UserService ──

type mockUserService struct {
	parsedRows   []service.ImportUserRow
	parseErr     error
	importResult *dto.ImportUserResponse
	importErr    error
	parseCalled  bool
}

func (m *mockUserService) CreateUser(_ context.Context, _ policy.Principal, _ *dto.CreateUserRequest) (*dto.CreateUserResponse, error) {
	return nil, nil
}
func (m *mockUserService) GetByID(_ context.Context, _ policy.Principal, _ string) (*dto.UserResponse, error) {
	return nil, nil
}
func (m *mockUserService) List(_ context.Context, _ policy.Principal, _ *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	return nil, 0, nil
}
func (m *mockUserService) Update(_ context.Context, _ policy.Principal, _ string, _ *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	return nil, nil
}
func (m *mockUserService) Delete(_ context.Context, _ policy.Principal, _ string) error {
	return nil
}
func (m *mockUserService) AssignRole(_ context.Context, _ policy.Principal, _ string, _ *dto.AssignRoleRequest) error {
	return nil
}
func (m *mockUserService) ResetPassword(_ context.Context, _ policy.Principal, _ string) (*dto.ResetPasswordResponse, error) {
	return nil, nil
}
func (m *mockUserService) ParseImportFile(_ io.Reader) ([]service.ImportUserRow, error) {
	m.parseCalled = true
	return m.parsedRows, m.parseErr
}
func (m *mockUserService) ImportUsers(_ context.Context, _ policy.Principal, _ []service.ImportUserRow) (*dto.ImportUserResponse, error) {
	return m.importResult, m.importErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	return r, c, w
}

func setAuth(c *gin.Context) {
	c.Set(CtxUserID, "test-user-id")
	c.Set(CtxRole, model.RoleServiceUnitAdmin)
	c.Set(CtxServiceUnitID, "test-unit-id")
	c.Set(CtxTokenJTI, "test-jti")
	c.Set(CtxTokenExp, time.Now().Add(15*time.Minute))
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "admin@example.org",
		Password: "Test1234",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	cookie := refreshCookie(w)
	if cookie == nil {
		t.Fatal("expected refresh_token cookie to be set")
	}
	if cookie.Value != "test-refresh-token" {
		t.Errorf("expected cookie value test-refresh-token, got %s", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("expected refresh_token cookie to be HttpOnly")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10001 {
		t.Errorf("expected error code 10001, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "admin@example.org",
		Password: "wrong",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_Disabled(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrAccountDisabled}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Email:    "gone@example.org",
		Password: "Test1234",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11003 {
		t.Errorf("expected error code 11003, got %d", resp.Code)
	}
	if resp.Message != "account is disabled" {
		t.Errorf("expected kind prefix trimmed, got %q", resp.Message)
	}
}

func TestAuthHandler_RefreshToken_FromBody(t *testing.T) {
	mock := &mockAuthService{
		refreshResult: &dto.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{
		RefreshToken: "old-refresh",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.refreshToken != "old-refresh" {
		t.Errorf("expected body token to be used, got %q", mock.refreshToken)
	}
	if c := refreshCookie(w); c == nil || c.Value != "new-refresh" {
		t.Error("expected rotated refresh_token cookie")
	}
}

func TestAuthHandler_RefreshToken_FromCookie(t *testing.T) {
	mock := &mockAuthService{
		refreshResult: &dto.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "cookie-refresh"})

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.refreshToken != "cookie-refresh" {
		t.Errorf("expected cookie token to be used, got %q", mock.refreshToken)
	}
}

func TestAuthHandler_RefreshToken_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(map[string]string{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_Revoked(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrInvalidRefreshToken}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "replayed"})

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11002 {
		t.Errorf("expected error code 11002, got %d", resp.Code)
	}
	if c := refreshCookie(w); c == nil || c.MaxAge >= 0 {
		t.Error("expected refresh_token cookie to be cleared")
	}
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/logout", nil)

	r := gin.New()
	r.POST("/auth/logout", func(c *gin.Context) {
		setAuth(c)
		h.Logout(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutJTI != "test-jti" {
		t.Errorf("expected jti test-jti to be revoked, got %q", mock.logoutJTI)
	}
	if mock.logoutUser != "test-user-id" {
		t.Errorf("expected logout for test-user-id, got %q", mock.logoutUser)
	}
	if c := refreshCookie(w); c == nil || c.MaxAge >= 0 {
		t.Error("expected refresh_token cookie to be cleared")
	}
}

func TestAuthHandler_GetCurrentUser_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", h.GetCurrentUser)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10002 {
		t.Errorf("expected error code 10002, got %d", resp.Code)
	}
}

func TestAuthHandler_ChangePassword_WrongPassword(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{changePassErr: service.ErrWrongPassword}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/auth/password", jsonBody(dto.ChangePasswordRequest{
		OldPassword: "nope",
		NewPassword: "NewPass1234",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/auth/password", func(c *gin.Context) {
		setAuth(c)
		h.ChangePassword(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11004 {
		t.Errorf("expected error code 11004, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AllocationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAllocationHandler_Create_Success(t *testing.T) {
	mock := &mockAllocationService{result: &dto.AllocationResponse{ID: 7, IsActive: true}}
	h := NewAllocationHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/allocations", jsonBody(map[string]any{
		"room_id":         "11111111-1111-1111-1111-111111111111",
		"allocation_type": model.AllocationKindServiceUnit,
		"service_unit_id": "22222222-2222-2222-2222-222222222222",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/allocations", func(c *gin.Context) {
		setAuth(c)
		h.Create(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.principal.UserID != "test-user-id" || mock.principal.Role != model.RoleServiceUnitAdmin {
		t.Errorf("unexpected principal %+v", mock.principal)
	}
	if !mock.principal.InServiceUnit("test-unit-id") {
		t.Error("expected principal to carry the token's service unit")
	}
}

func TestAllocationHandler_Create_BadBody(t *testing.T) {
	h := NewAllocationHandler(&mockAllocationService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/allocations", jsonBody(map[string]any{
		"allocation_type": "Tenant",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/allocations", func(c *gin.Context) {
		setAuth(c)
		h.Create(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 10001 || resp.Details == "" {
		t.Errorf("expected 10001 with details, got %d %q", resp.Code, resp.Details)
	}
}

func TestAllocationHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"occupied", service.ErrRoomOccupied, http.StatusConflict, 15002},
		{"not found", service.ErrAllocationNotFound, http.StatusNotFound, 15001},
		{"forbidden", service.ErrCannotModifyAllocation, http.StatusForbidden, 15007},
		{"ad hoc validation", pkgerrors.Validation("user must be a Pastor"), http.StatusBadRequest, 10001},
		{"ad hoc conflict", pkgerrors.Conflict("busy"), http.StatusConflict, 10007},
		{"optimistic lock", pkgerrors.ErrOptimisticLock, http.StatusConflict, 10008},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, 50000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAllocationHandler(&mockAllocationService{err: tc.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/allocations/5/activate", nil)

			r := gin.New()
			r.POST("/allocations/:id/activate", func(c *gin.Context) {
				setAuth(c)
				h.Reactivate(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d", tc.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tc.wantCode {
				t.Errorf("expected code %d, got %d", tc.wantCode, resp.Code)
			}
		})
	}
}

func TestAllocationHandler_Deactivate_BadID(t *testing.T) {
	h := NewAllocationHandler(&mockAllocationService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/allocations/abc/deactivate", nil)

	r := gin.New()
	r.POST("/allocations/:id/deactivate", func(c *gin.Context) {
		setAuth(c)
		h.Deactivate(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAllocationHandler_List_Paged(t *testing.T) {
	mock := &mockAllocationService{
		list:  []dto.AllocationResponse{{ID: 1}, {ID: 2}},
		total: 12,
	}
	h := NewAllocationHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/allocations?page=2&page_size=5&is_active=true", nil)

	r := gin.New()
	r.GET("/allocations", func(c *gin.Context) {
		setAuth(c)
		h.List(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.listReq == nil || mock.listReq.Active == nil || !*mock.listReq.Active {
		t.Error("expected is_active filter to be bound")
	}

	var body struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Pagination.Page != 2 || body.Data.Pagination.TotalPages != 3 {
		t.Errorf("unexpected pagination %+v", body.Data.Pagination)
	}
}

func TestAllocationHandler_ListMine_IncludeInactive(t *testing.T) {
	for _, tt := range []struct {
		query string
		want  bool
	}{
		{"", false},
		{"?include_inactive=true", true},
	} {
		mock := &mockAllocationService{}
		h := NewAllocationHandler(mock)

		_, _, w := setupGin()
		req := httptest.NewRequest("GET", "/allocations/mine"+tt.query, nil)

		r := gin.New()
		r.GET("/allocations/mine", func(c *gin.Context) {
			setAuth(c)
			h.ListMine(c)
		})
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%q: expected 200, got %d", tt.query, w.Code)
		}
		if mock.mineReq == nil || mock.mineReq.IncludeInactive != tt.want {
			t.Errorf("%q: expected include_inactive=%v, got %+v", tt.query, tt.want, mock.mineReq)
		}
	}
}

func TestAllocationHandler_Unauthenticated(t *testing.T) {
	h := NewAllocationHandler(&mockAllocationService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/allocations/mine", nil)

	r := gin.New()
	r.GET("/allocations/mine", h.ListMine)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AllocationRequestHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAllocationRequestHandler_Approve_NoBody(t *testing.T) {
	mock := &mockRequestService{result: &dto.AllocationRequestResponse{ID: 3, Status: model.RequestStatusApproved}}
	h := NewAllocationRequestHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/allocation-requests/3/approve", nil)

	r := gin.New()
	r.POST("/allocation-requests/:id/approve", func(c *gin.Context) {
		setAuth(c)
		h.Approve(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastID != 3 {
		t.Errorf("expected id 3, got %d", mock.lastID)
	}
	if mock.approveReq == nil || mock.approveReq.RoomID != nil {
		t.Error("expected an empty approval override")
	}
}

func TestAllocationRequestHandler_Approve_WithOverride(t *testing.T) {
	mock := &mockRequestService{result: &dto.AllocationRequestResponse{ID: 3}}
	h := NewAllocationRequestHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/allocation-requests/3/approve", jsonBody(map[string]any{
		"room_id":      "33333333-3333-3333-3333-333333333333",
		"review_notes": "ok",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/allocation-requests/:id/approve", func(c *gin.Context) {
		setAuth(c)
		h.Approve(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.approveReq.RoomID == nil || *mock.approveReq.RoomID != "33333333-3333-3333-3333-333333333333" {
		t.Error("expected room override to be bound")
	}
	if mock.approveReq.ReviewNotes != "ok" {
		t.Errorf("expected review notes, got %q", mock.approveReq.ReviewNotes)
	}
}

func TestAllocationRequestHandler_Transitions(t *testing.T) {
	cases := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"approve occupied room", "approve", service.ErrRoomOccupied, http.StatusConflict, 15002},
		{"reject after approve", "reject", service.ErrRequestNotPending, http.StatusBadRequest, 16002},
		{"cancel by reviewer", "cancel", service.ErrCannotCancelRequest, http.StatusForbidden, 16007},
		{"approve by member", "approve", service.ErrCannotReviewRequest, http.StatusForbidden, 16006},
		{"missing request", "cancel", service.ErrRequestNotFound, http.StatusNotFound, 16001},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAllocationRequestHandler(&mockRequestService{err: tc.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/allocation-requests/9/"+tc.path, nil)

			r := gin.New()
			r.POST("/allocation-requests/:id/approve", func(c *gin.Context) { setAuth(c); h.Approve(c) })
			r.POST("/allocation-requests/:id/reject", func(c *gin.Context) { setAuth(c); h.Reject(c) })
			r.POST("/allocation-requests/:id/cancel", func(c *gin.Context) { setAuth(c); h.Cancel(c) })
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Errorf("expected %d, got %d", tc.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tc.wantCode {
				t.Errorf("expected code %d, got %d", tc.wantCode, resp.Code)
			}
		})
	}
}

func TestAllocationRequestHandler_Submit_MissingReason(t *testing.T) {
	h := NewAllocationRequestHandler(&mockRequestService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/allocation-requests", jsonBody(map[string]any{
		"preferred_room_id": "33333333-3333-3333-3333-333333333333",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/allocation-requests", func(c *gin.Context) {
		setAuth(c)
		h.Submit(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// UserHandler Tests
// ═══════════════════════════════════════════════════════════

func multipartFile(t *testing.T, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUserHandler_ImportUsers(t *testing.T) {
	mock := &mockUserService{
		parsedRows:   []service.ImportUserRow{{Row: 2}},
		importResult: &dto.ImportUserResponse{Total: 1, Success: 1},
	}
	h := NewUserHandler(mock)

	body, contentType := multipartFile(t, "members.xlsx", []byte("PK"))
	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/users/import", body)
	req.Header.Set("Content-Type", contentType)

	r := gin.New()
	r.POST("/users/import", func(c *gin.Context) {
		setAuth(c)
		h.ImportUsers(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !mock.parseCalled {
		t.Error("expected the workbook to be parsed")
	}
}

func TestUserHandler_ImportUsers_Rejected(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		h := NewUserHandler(&mockUserService{})

		_, _, w := setupGin()
		req := httptest.NewRequest("POST", "/users/import", nil)

		r := gin.New()
		r.POST("/users/import", func(c *gin.Context) {
			setAuth(c)
			h.ImportUsers(c)
		})
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		mock := &mockUserService{}
		h := NewUserHandler(mock)

		body, contentType := multipartFile(t, "members.csv", []byte("a,b"))
		_, _, w := setupGin()
		req := httptest.NewRequest("POST", "/users/import", body)
		req.Header.Set("Content-Type", contentType)

		r := gin.New()
		r.POST("/users/import", func(c *gin.Context) {
			setAuth(c)
			h.ImportUsers(c)
		})
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if resp := parseResponse(w); resp.Code != 12009 {
			t.Errorf("expected error code 12009, got %d", resp.Code)
		}
		if mock.parseCalled {
			t.Error("parser should not run for a non-xlsx upload")
		}
	})

	t.Run("bad header", func(t *testing.T) {
		h := NewUserHandler(&mockUserService{parseErr: service.ErrImportBadHeader})

		body, contentType := multipartFile(t, "members.xlsx", []byte("PK"))
		_, _, w := setupGin()
		req := httptest.NewRequest("POST", "/users/import", body)
		req.Header.Set("Content-Type", contentType)

		r := gin.New()
		r.POST("/users/import", func(c *gin.Context) {
			setAuth(c)
			h.ImportUsers(c)
		})
		r.ServeHTTP(w, req)

		if resp := parseResponse(w); resp.Code != 12008 {
			t.Errorf("expected error code 12008, got %d", resp.Code)
		}
	})
}
