package models

// Role represents operator roles in the system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Actions checked by HasPermission
const (
	ActionViewVehicles      = "view_vehicles"
	ActionCreateVehicle     = "create_vehicle"
	ActionCreateMaintenance = "create_maintenance"
	ActionUpdateMileage     = "update_mileage"
	ActionExportLogbook     = "export_logbook"
)

// Operator is an account allowed to use the logbook API
type Operator struct {
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	Operator  Operator `json:"operator"`
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if the role may perform an action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleOperator:
		return action == ActionViewVehicles || action == ActionCreateMaintenance ||
			action == ActionUpdateMileage || action == ActionExportLogbook
	case RoleViewer:
		return action == ActionViewVehicles || action == ActionExportLogbook
	default:
		return false
	}
}
