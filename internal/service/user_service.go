package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/event"
	"accommodation-portal/internal/model"
	"accommodation-portal/internal/policy"
	"accommodation-portal/internal/repository"
	pkgerrors "accommodation-portal/pkg/errors"
)

// ── User module errors ──

var (
	ErrEmailExists        = fmt.Errorf("%w: email is already registered", pkgerrors.ErrConflict)
	ErrUserSelfRoleChange = fmt.Errorf("%w: you can not change your own role", pkgerrors.ErrValidation)
	ErrUserSelfDelete     = fmt.Errorf("%w: you can not delete yourself", pkgerrors.ErrValidation)
	ErrNoPermission       = fmt.Errorf("%w: operation not permitted", pkgerrors.ErrForbidden)
)

// UserService user management interface
type UserService interface {
	CreateUser(ctx context.Context, p policy.Principal, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error)
	GetByID(ctx context.Context, p policy.Principal, id string) (*dto.UserResponse, error)
	List(ctx context.Context, p policy.Principal, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, p policy.Principal, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, p policy.Principal, id string) error
	AssignRole(ctx context.Context, p policy.Principal, id string, req *dto.AssignRoleRequest) error
	ResetPassword(ctx context.Context, p policy.Principal, id string) (*dto.ResetPasswordResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportUsers(ctx context.Context, p policy.Principal, rows []ImportUserRow) (*dto.ImportUserResponse, error)
}

// ImportUserRow one parsed spreadsheet row
type ImportUserRow struct {
	Row             int
	FirstName       string
	LastName        string
	Email           string
	PhoneNumber     string
	Role            string
	ServiceUnitName string
}

type userService struct {
	repo    *repository.Repository
	emitter event.Emitter
	logger  *zap.Logger
}

// NewUserService creates a UserService
func NewUserService(repo *repository.Repository, emitter event.Emitter, logger *zap.Logger) UserService {
	return &userService{repo: repo, emitter: emitter, logger: logger}
}

// ────────────────────── CreateUser ──────────────────────

func (s *userService) CreateUser(ctx context.Context, p policy.Principal, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error) {
	if !policy.IsSuperAdmin(p) {
		return nil, ErrNoPermission
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.checkEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	if req.ServiceUnitID != nil {
		if err := s.requireServiceUnit(ctx, *req.ServiceUnitID); err != nil {
			return nil, err
		}
	}

	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("generate temp password failed", zap.Error(err))
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		Email:              email,
		PhoneNumber:        req.PhoneNumber,
		PasswordHash:       string(hash),
		Role:               req.Role,
		ServiceUnitID:      req.ServiceUnitID,
		IsActive:           true,
		MustChangePassword: true,
		VersionedModel:     model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &p.UserID}}},
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("create user failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindUserCreate, p, event.SubjectUser, user.UserID,
		map[string]any{"role": user.Role}))

	created, err := s.repo.User.GetByID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	return &dto.CreateUserResponse{User: toUserResponse(created), TempPassword: tempPassword}, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, p policy.Principal, id string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewUser(p, user) {
		return nil, ErrNoPermission
	}
	return toUserResponse(user), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, p policy.Principal, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filters := &repository.UserListFilters{
		ServiceUnitID: req.ServiceUnitID,
		Role:          req.Role,
		Keyword:       req.Keyword,
	}

	switch {
	case policy.IsSuperAdmin(p):
	case policy.IsServiceUnitAdmin(p) && p.ServiceUnitID != nil:
		// unit admins only see their own unit
		filters.ServiceUnitID = *p.ServiceUnitID
	default:
		return nil, 0, ErrNoPermission
	}

	users, total, err := s.repo.User.ListWithFilters(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, p policy.Principal, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	// everyone but SuperAdmin edits only their own profile, never the unit
	if !policy.IsSuperAdmin(p) {
		if p.UserID != id || req.ServiceUnitID != nil {
			return nil, ErrNoPermission
		}
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := s.checkEmailFree(ctx, email, id); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if req.ServiceUnitID != nil {
		if err := s.requireServiceUnit(ctx, *req.ServiceUnitID); err != nil {
			return nil, err
		}
		user.ServiceUnitID = req.ServiceUnitID
	}

	user.UpdatedBy = &p.UserID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("update user failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindUserUpdate, p, event.SubjectUser, id,
		map[string]any{"action": "profile_update"}))

	updated, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(updated), nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, p policy.Principal, id string) error {
	if !policy.IsSuperAdmin(p) {
		return ErrNoPermission
	}
	if id == p.UserID {
		return ErrUserSelfDelete
	}
	if _, err := s.getUser(ctx, id); err != nil {
		return err
	}

	if err := s.repo.User.Delete(ctx, id, p.UserID); err != nil {
		s.logger.Error("delete user failed", zap.String("id", id), zap.Error(err))
		return err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindUserDelete, p, event.SubjectUser, id, nil))
	return nil
}

// ────────────────────── AssignRole ──────────────────────

func (s *userService) AssignRole(ctx context.Context, p policy.Principal, id string, req *dto.AssignRoleRequest) error {
	if !policy.IsSuperAdmin(p) {
		return ErrNoPermission
	}
	if id == p.UserID {
		return ErrUserSelfRoleChange
	}
	if !model.IsValidRole(req.Role) {
		return pkgerrors.Validation("unknown role %q", req.Role)
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	user.Role = req.Role
	user.UpdatedBy = &p.UserID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("assign role failed", zap.String("id", id), zap.Error(err))
		return err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindUserUpdate, p, event.SubjectUser, id,
		map[string]any{"action": "role_change", "role": req.Role}))
	return nil
}

// ────────────────────── ResetPassword ──────────────────────

func (s *userService) ResetPassword(ctx context.Context, p policy.Principal, id string) (*dto.ResetPasswordResponse, error) {
	if !policy.IsSuperAdmin(p) {
		return nil, ErrNoPermission
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("generate temp password failed", zap.Error(err))
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return nil, err
	}

	user.PasswordHash = string(hash)
	user.MustChangePassword = true
	user.UpdatedBy = &p.UserID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("reset password failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.emitter.Emit(ctx, adminEvent(event.KindUserUpdate, p, event.SubjectUser, id,
		map[string]any{"action": "password_reset"}))

	return &dto.ResetPasswordResponse{TempPassword: tempPassword}, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = fmt.Errorf("%w: spreadsheet has no data rows (first row is the header)", pkgerrors.ErrValidation)
	ErrImportTooManyRows = fmt.Errorf("%w: spreadsheet exceeds %d rows", pkgerrors.ErrValidation, maxImportRows)
	ErrImportBadHeader   = fmt.Errorf("%w: header must contain first_name, email and role columns", pkgerrors.ErrValidation)
)

// ParseImportFile reads the first sheet of an .xlsx upload
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, pkgerrors.Validation("can not read spreadsheet: %v", err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, pkgerrors.Validation("can not read worksheet: %v", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	col := parseHeaderIndex(excelRows[0])
	if col["first_name"] < 0 || col["email"] < 0 || col["role"] < 0 {
		return nil, ErrImportBadHeader
	}

	cell := func(row []string, name string) string {
		idx := col[name]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportUserRow{
			Row:             i + 1,
			FirstName:       cell(row, "first_name"),
			LastName:        cell(row, "last_name"),
			Email:           cell(row, "email"),
			PhoneNumber:     cell(row, "phone_number"),
			Role:            cell(row, "role"),
			ServiceUnitName: cell(row, "service_unit"),
		}
		if item == (ImportUserRow{Row: item.Row}) {
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

// parseHeaderIndex maps column key to index, -1 when absent
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"first_name":   -1,
		"last_name":    -1,
		"email":        -1,
		"phone_number": -1,
		"role":         -1,
		"service_unit": -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "first_name", "first name", "firstname":
			idx["first_name"] = i
		case "last_name", "last name", "lastname", "surname":
			idx["last_name"] = i
		case "email", "e-mail":
			idx["email"] = i
		case "phone_number", "phone", "phone number":
			idx["phone_number"] = i
		case "role":
			idx["role"] = i
		case "service_unit", "service unit", "unit":
			idx["service_unit"] = i
		}
	}
	return idx
}

// ────────────────────── ImportUsers ──────────────────────

// ImportUsers validates every row first, then creates the valid ones in a
// single transaction. A write failure rolls back the whole import.
func (s *userService) ImportUsers(ctx context.Context, p policy.Principal, rows []ImportUserRow) (*dto.ImportUserResponse, error) {
	if !policy.IsSuperAdmin(p) {
		return nil, ErrNoPermission
	}

	resp := &dto.ImportUserResponse{Total: len(rows)}

	units, err := s.buildServiceUnitMap(ctx)
	if err != nil {
		s.logger.Error("load service units failed", zap.Error(err))
		return nil, err
	}

	type validatedRow struct {
		row      ImportUserRow
		unitID   *string
		password string
		hash     []byte
	}
	var valid []validatedRow
	seen := make(map[string]bool, len(rows))

	fail := func(row int, format string, args ...any) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: fmt.Sprintf(format, args...)})
	}

	for _, row := range rows {
		if row.FirstName == "" || row.Email == "" || row.Role == "" {
			fail(row.Row, "first_name, email and role are required")
			continue
		}
		if !model.IsValidRole(row.Role) {
			fail(row.Row, "unknown role: %s", row.Role)
			continue
		}

		email := strings.ToLower(row.Email)
		if seen[email] {
			fail(row.Row, "duplicate email in file: %s", email)
			continue
		}
		if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
			fail(row.Row, "email already registered: %s", email)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		var unitID *string
		if row.ServiceUnitName != "" {
			unit, ok := units[strings.ToLower(row.ServiceUnitName)]
			if !ok {
				fail(row.Row, "service unit not found: %s", row.ServiceUnitName)
				continue
			}
			unitID = &unit.ServiceUnitID
		}

		password, err := generateTempPassword(10)
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			fail(row.Row, "password hashing failed")
			continue
		}

		seen[email] = true
		row.Email = email
		valid = append(valid, validatedRow{row: row, unitID: unitID, password: password, hash: hash})
	}

	if len(valid) == 0 {
		s.emitImport(ctx, p, resp)
		return resp, nil
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		for _, vr := range valid {
			user := &model.User{
				FirstName:          vr.row.FirstName,
				LastName:           vr.row.LastName,
				Email:              vr.row.Email,
				PhoneNumber:        vr.row.PhoneNumber,
				PasswordHash:       string(vr.hash),
				Role:               vr.row.Role,
				ServiceUnitID:      vr.unitID,
				IsActive:           true,
				MustChangePassword: true,
				VersionedModel:     model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &p.UserID}}},
			}
			if err := tx.User.Create(ctx, user); err != nil {
				s.logger.Error("import user failed, rolling back",
					zap.Int("row", vr.row.Row), zap.Error(err))
				return fmt.Errorf("row %d: %w", vr.row.Row, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, vr := range valid {
		resp.Success++
		resp.Created = append(resp.Created, dto.ImportedUser{
			Row:          vr.row.Row,
			Email:        vr.row.Email,
			TempPassword: vr.password,
		})
	}

	s.emitImport(ctx, p, resp)
	return resp, nil
}

// emitImport records the import outcome; a file with no usable rows counts as failed
func (s *userService) emitImport(ctx context.Context, p policy.Principal, resp *dto.ImportUserResponse) {
	e := event.Event{
		Kind:    event.KindDataImport,
		ActorID: p.UserID,
		Metadata: map[string]any{
			"import_type": "users",
			"total":       resp.Total,
			"success":     resp.Success,
			"failed":      resp.Failed,
		},
	}
	if resp.Success == 0 && resp.Total > 0 {
		e.Error = "no rows imported"
	}
	s.emitter.Emit(ctx, e)
}

// ── helpers ──

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("get user failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// checkEmailFree excludeID is the user allowed to hold the address already
func (s *userService) checkEmailFree(ctx context.Context, email, excludeID string) error {
	existing, err := s.repo.User.GetByEmail(ctx, email)
	if err == nil && existing.UserID != excludeID {
		return ErrEmailExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *userService) requireServiceUnit(ctx context.Context, id string) error {
	if _, err := s.repo.ServiceUnit.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceUnitNotFound
		}
		return err
	}
	return nil
}

// buildServiceUnitMap lower-cased name -> unit
func (s *userService) buildServiceUnitMap(ctx context.Context) (map[string]*model.ServiceUnit, error) {
	units, err := s.repo.ServiceUnit.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*model.ServiceUnit, len(units))
	for i := range units {
		m[strings.ToLower(units[i].Name)] = &units[i]
	}
	return m, nil
}

func canViewUser(p policy.Principal, u *model.User) bool {
	if policy.IsSuperAdmin(p) || p.UserID == u.UserID {
		return true
	}
	return policy.IsServiceUnitAdmin(p) && u.ServiceUnitID != nil && p.InServiceUnit(*u.ServiceUnitID)
}

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                 u.UserID,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		FullName:           u.FullName(),
		Email:              u.Email,
		PhoneNumber:        u.PhoneNumber,
		Role:               u.Role,
		ServiceUnit:        toServiceUnitBrief(u.ServiceUnit),
		IsActive:           u.IsActive,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          formatTime(u.CreatedAt),
	}
}

// generateTempPassword random password with at least one letter and one digit
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 8 {
		length = 8
	}

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	result := make([]byte, length)
	var err error
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}
	return string(result), nil
}
