package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/model"
	"accommodation-portal/internal/policy"
	"accommodation-portal/internal/service"
)

type seedOptions struct {
	adminEmail    string
	adminPassword string
	domain        string
	unitName      string
	file          string
}

// SeedUsersCmd creates a SuperAdmin plus one test user per remaining role,
// and optionally imports a workbook of users.
func SeedUsersCmd(app *AppContext) *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed-users",
		Short: "Create test users for each role and optionally import an .xlsx of users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.adminPassword) < 8 {
				return fmt.Errorf("--password must be at least 8 characters")
			}
			return seedUsers(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.adminEmail, "admin-email", "admin@example.org", "SuperAdmin email")
	cmd.Flags().StringVar(&opts.adminPassword, "password", "", "SuperAdmin password (required)")
	cmd.Flags().StringVar(&opts.domain, "domain", "example.org", "email domain of the generated test users")
	cmd.Flags().StringVar(&opts.unitName, "unit", "Test Service Unit", "service unit the test users join")
	cmd.Flags().StringVar(&opts.file, "file", "", "optional .xlsx workbook to import (first_name, last_name, email, phone_number, role, service_unit)")
	cmd.MarkFlagRequired("password")

	return cmd
}

func seedUsers(ctx context.Context, app *AppContext, opts seedOptions) error {
	svc, repo := app.App.Service, app.App.Repo

	admin, err := ensureSuperAdmin(ctx, app, opts.adminEmail, opts.adminPassword)
	if err != nil {
		return err
	}
	p := policy.Principal{UserID: admin.UserID, Role: admin.Role}
	fmt.Printf("SuperAdmin:       %s\n", admin.Email)

	unit, err := svc.ServiceUnit.Create(ctx, p, &dto.CreateServiceUnitRequest{
		Name:        opts.unitName,
		Description: "Created by accomctl seed-users",
	})
	var unitID string
	switch {
	case errors.Is(err, service.ErrServiceUnitNameExists):
		existing, err := repo.ServiceUnit.GetByName(ctx, opts.unitName)
		if err != nil {
			return fmt.Errorf("load service unit %q: %w", opts.unitName, err)
		}
		unitID = existing.ServiceUnitID
	case err != nil:
		return fmt.Errorf("create service unit: %w", err)
	default:
		unitID = unit.ID
	}
	fmt.Printf("Service unit:     %s\n\n", opts.unitName)

	seeds := []dto.CreateUserRequest{
		{FirstName: "Unit", LastName: "Admin", Role: model.RoleServiceUnitAdmin},
		{FirstName: "Test", LastName: "Pastor", Role: model.RolePastor},
		{FirstName: "Test", LastName: "Member", Role: model.RoleMember},
	}
	for i := range seeds {
		req := &seeds[i]
		req.Email = strings.ToLower(req.FirstName+"."+req.LastName) + "@" + opts.domain
		req.ServiceUnitID = &unitID

		created, err := svc.User.CreateUser(ctx, p, req)
		if errors.Is(err, service.ErrEmailExists) {
			fmt.Printf("  %-18s %-32s already exists\n", req.Role, req.Email)
			continue
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", req.Email, err)
		}
		fmt.Printf("  %-18s %-32s temp password: %s\n", req.Role, req.Email, created.TempPassword)

		if req.Role == model.RoleServiceUnitAdmin {
			adminID := created.User.ID
			if _, err := svc.ServiceUnit.Update(ctx, p, unitID, &dto.UpdateServiceUnitRequest{AdminID: &adminID}); err != nil {
				return fmt.Errorf("assign unit admin: %w", err)
			}
		}
	}

	if opts.file == "" {
		return nil
	}
	return importWorkbook(ctx, app, p, opts.file)
}

// ensureSuperAdmin returns the SuperAdmin with email, creating it when absent
func ensureSuperAdmin(ctx context.Context, app *AppContext, email, password string) (*model.User, error) {
	repo := app.App.Repo
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := repo.User.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != model.RoleSuperAdmin {
			return nil, fmt.Errorf("%s exists with role %s", email, existing.Role)
		}
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	admin := &model.User{
		FirstName:    "Super",
		LastName:     "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := repo.User.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create SuperAdmin: %w", err)
	}
	return admin, nil
}

func importWorkbook(ctx context.Context, app *AppContext, p policy.Principal, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	svc := app.App.Service
	rows, err := svc.User.ParseImportFile(f)
	if err != nil {
		return err
	}
	result, err := svc.User.ImportUsers(ctx, p, rows)
	if err != nil {
		return err
	}

	fmt.Printf("\nImported %d of %d row(s) from %s\n", result.Success, result.Total, path)
	for _, u := range result.Created {
		fmt.Printf("  row %-4d %-32s temp password: %s\n", u.Row, u.Email, u.TempPassword)
	}
	for _, e := range result.Errors {
		fmt.Printf("  row %-4d failed: %s\n", e.Row, e.Reason)
	}
	return nil
}
