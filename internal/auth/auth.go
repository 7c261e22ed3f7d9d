// Package auth handles account registration, credential checks, and the
// bearer tokens that tie API requests to a user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ezzerof/expense-tracker/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrFirstNameRequired = errors.New("first name is required")
	ErrInvalidUsername   = errors.New("username must be 5-15 alphanumeric characters")
	ErrWeakPassword      = errors.New("password must be at least 8 characters")
	ErrInvalidEmail      = errors.New("email address is not valid")
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{5,15}$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const tokenTTL = 24 * time.Hour

// RegisterForm carries raw sign-up fields.
type RegisterForm struct {
	FirstName string
	Username  string
	Email     string
	Password  string
}

// Validate checks every field and reports all violations at once.
func (f RegisterForm) Validate() error {
	var errs []error
	if strings.TrimSpace(f.FirstName) == "" {
		errs = append(errs, ErrFirstNameRequired)
	}
	if !usernamePattern.MatchString(f.Username) {
		errs = append(errs, ErrInvalidUsername)
	}
	if len(f.Password) < 8 {
		errs = append(errs, ErrWeakPassword)
	}
	if !emailPattern.MatchString(f.Email) {
		errs = append(errs, ErrInvalidEmail)
	}
	return errors.Join(errs...)
}

// Service issues and verifies credentials against the user store.
type Service struct {
	users  store.UserStore
	secret []byte
}

func NewService(users store.UserStore, secret string) *Service {
	return &Service{users: users, secret: []byte(secret)}
}

// Register validates the form, hashes the password, and stores the account.
func (s *Service) Register(ctx context.Context, form RegisterForm) (store.User, error) {
	if err := form.Validate(); err != nil {
		return store.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, store.User{
		FirstName:    strings.TrimSpace(form.FirstName),
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return store.User{}, err
	}
	return user, nil
}

// Login checks the credentials and returns a signed bearer token. Unknown
// usernames and wrong passwords collapse into the same error.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.UserByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// UserIDFromToken verifies a bearer token and extracts the user ID.
func (s *Service) UserIDFromToken(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
