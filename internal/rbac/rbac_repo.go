package rbac

import "leave-portal/internal/domain"

//go:generate mockgen -source=rbac_repo.go -destination=mock/rbac_repo_mock.go -package=mock
type Repository interface {
	GetRoleInheritance() ([]RoleInheritanceRow, error)
	GetRolePermissions() ([]RolePermissionRow, error)
}

// RoleInheritanceRow says Role receives every permission of Parent.
type RoleInheritanceRow struct {
	Role   string
	Parent string
}

type RolePermissionRow struct {
	Role     string
	Resource string
	Action   string
}

type staticRepository struct {
	inheritance []RoleInheritanceRow
	permissions []RolePermissionRow
}

// NewStaticRepository serves the built-in role policy. Roles live on the user
// row, so there are no policy tables to read from.
func NewStaticRepository() Repository {
	return &staticRepository{
		inheritance: []RoleInheritanceRow{
			{Role: domain.RoleManager, Parent: domain.RoleEmployee},
			{Role: domain.RoleAdmin, Parent: domain.RoleManager},
		},
		permissions: []RolePermissionRow{
			{Role: domain.RoleEmployee, Resource: "leave", Action: "create"},
			{Role: domain.RoleEmployee, Resource: "leave", Action: "read"},
			{Role: domain.RoleEmployee, Resource: "balance", Action: "read"},
			{Role: domain.RoleManager, Resource: "leave", Action: "approve"},
			{Role: domain.RoleManager, Resource: "user", Action: "read"},
		},
	}
}

func (r *staticRepository) GetRoleInheritance() ([]RoleInheritanceRow, error) {
	return append([]RoleInheritanceRow(nil), r.inheritance...), nil
}

func (r *staticRepository) GetRolePermissions() ([]RolePermissionRow, error) {
	return append([]RolePermissionRow(nil), r.permissions...), nil
}
