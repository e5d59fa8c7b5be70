package domain

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleFaculty    = "faculty"
	RoleRecruiter  = "recruiter"
	RoleStudent    = "student"
)

// Principal is the authenticated caller of an HTTP request.
type Principal struct {
	UserID       string
	Role         string
	UniversityID string
}

// IsOperator reports whether p may send and manage notifications.
func (p *Principal) IsOperator() bool {
	return p != nil && (p.Role == RoleAdmin || p.Role == RoleSuperAdmin)
}
