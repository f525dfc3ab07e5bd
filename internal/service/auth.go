package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/captolab/gpuhub/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidationError reports a rejected registration or login field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthService issues and verifies HS256 session tokens and manages user
// accounts.
type AuthService struct {
	db          *sql.DB
	secret      []byte
	tokenExpiry time.Duration
}

func NewAuthService(db *sql.DB, secret string, tokenExpiry time.Duration) *AuthService {
	return &AuthService{db: db, secret: []byte(secret), tokenExpiry: tokenExpiry}
}

// Register creates a student account. Emails are stored lowercased and
// must be unique; passwords are bcrypt-hashed.
func (a *AuthService) Register(ctx context.Context, email, password string) (*model.AuthUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		return nil, &ValidationError{Field: "email", Reason: "not a valid address"}
	}
	if len(password) < 6 {
		return nil, &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO users (user_id, email, password_hash, role, enabled, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
		userID, email, string(hash), model.RoleStudent, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return nil, &ValidationError{Field: "email", Reason: "already registered"}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Printf("user registered (user=%s)", userID)
	return model.NewAuthUser(userID, email, model.RoleStudent), nil
}

// Login authenticates and returns a signed token. Disabled accounts are
// rejected the same way as bad credentials.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, *model.AuthUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var (
		userID, hash, role string
		enabled            int
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash, role, enabled FROM users WHERE email = ?`,
		email).Scan(&userID, &hash, &role, &enabled)
	if err == sql.ErrNoRows {
		return "", nil, &ValidationError{Field: "credentials", Reason: "invalid email or password"}
	}
	if err != nil {
		return "", nil, fmt.Errorf("query user: %w", err)
	}
	if enabled != 1 {
		return "", nil, &ValidationError{Field: "credentials", Reason: "invalid email or password"}
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", nil, &ValidationError{Field: "credentials", Reason: "invalid email or password"}
	}

	user := model.NewAuthUser(userID, email, role)
	token, err := a.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (a *AuthService) issueToken(user *model.AuthUser) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.UserID,
		"email":   user.Email,
		"role":    user.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(a.tokenExpiry).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a bearer token and rehydrates the
// authenticated user from its claims.
func (a *AuthService) VerifyToken(tokenStr string) (*model.AuthUser, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return nil, fmt.Errorf("token missing user_id claim")
	}
	return model.NewAuthUser(userID, email, role), nil
}

// SetUserEnabled sets an account's enabled flag to the given value.
// Idempotent: repeating the call leaves the account in the same state.
// Fails with NotFoundError when no such user exists.
func (a *AuthService) SetUserEnabled(ctx context.Context, userID string, enabled bool) error {
	flag := 0
	if enabled {
		flag = 1
	}
	res, err := a.db.ExecContext(ctx,
		`UPDATE users SET enabled = ? WHERE user_id = ?`, flag, userID)
	if err != nil {
		return fmt.Errorf("set user enabled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &model.NotFoundError{Resource: "user", ID: userID}
	}
	return nil
}

// EnsureAdmin seeds an admin account if the email is not yet registered.
// Used at startup so a fresh deployment has a working admin login.
func (a *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	var exists int
	err := a.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if exists > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO users (user_id, email, password_hash, role, enabled, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
		uuid.NewString(), email, string(hash), model.RoleAdmin, now)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Printf("admin account seeded (email=%s)", email)
	return nil
}
