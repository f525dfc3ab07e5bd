package model

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// AuthUser is the in-memory representation of an authenticated principal,
// populated from the verified token claims. The coordinator trusts UserID
// from a successfully verified token; no further authorization is done
// beyond admin-route role checks.
type AuthUser struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func NewAuthUser(userID, email, role string) *AuthUser {
	return &AuthUser{UserID: userID, Email: email, Role: role}
}

// IsAdmin reports whether the user may access /admin routes.
func (u *AuthUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}
