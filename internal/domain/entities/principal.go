package entities

// Role identifies the kind of account behind a bearer token
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
)

// Principal is the authenticated caller as resolved by the session layer
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
