package services

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"alfredoptarigan/resume-matcher/internal/models"
	"alfredoptarigan/resume-matcher/internal/repositories"
)

var passwordHashCost = bcrypt.DefaultCost

// Claims is the payload of an access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserSeed is one entry of the users file. Either Password or PasswordHash
// must be set.
type UserSeed struct {
	Username     string `toml:"username"`
	FullName     string `toml:"full_name"`
	Password     string `toml:"password"`
	PasswordHash string `toml:"password_hash"`
	Role         string `toml:"role"`
}

type usersFile struct {
	Users []UserSeed `toml:"users"`
}

var demoUsers = []UserSeed{
	{Username: "admin", FullName: "Admin User", Password: "admin123", Role: string(models.RoleAdmin)},
	{Username: "recruiter", FullName: "Recruiter User", Password: "recruiter123", Role: string(models.RoleUser)},
}

type AuthService interface {
	Authenticate(username, password string) (*models.User, error)
	IssueToken(user *models.User) (string, error)
	ParseToken(token string) (*Claims, error)
	CurrentUser(token string) (*models.User, error)
	Authorize(user *models.User, roles ...models.Role) error
	SeedUsers(path string, allowDemo bool) (int, error)
}

type authService struct {
	userRepo repositories.UserRepository
	secret   []byte
	tokenTTL time.Duration
	log      *zap.Logger
}

func NewAuthService(userRepo repositories.UserRepository, secret string, tokenTTL time.Duration, log *zap.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		log:      log,
	}
}

// Authenticate implements AuthService.
func (a *authService) Authenticate(username, password string) (*models.User, error) {
	user, err := a.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// IssueToken implements AuthService.
func (a *authService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken implements AuthService.
func (a *authService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CurrentUser implements AuthService.
func (a *authService) CurrentUser(token string) (*models.User, error) {
	claims, err := a.ParseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := a.userRepo.FindByUsername(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Authorize implements AuthService. No roles means any authenticated user.
func (a *authService) Authorize(user *models.User, roles ...models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// SeedUsers implements AuthService. A missing users file falls back to the
// demo accounts when allowDemo is set.
func (a *authService) SeedUsers(path string, allowDemo bool) (int, error) {
	seeds, err := loadUserSeeds(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return 0, err
		}
		if !allowDemo {
			a.log.Warn("⚠️  No users file found, nobody can log in", zap.String("path", path))
			return 0, nil
		}
		a.log.Warn("⚠️  No users file found, seeding demo users", zap.String("path", path))
		seeds = demoUsers
	}

	for _, seed := range seeds {
		user, err := seed.toUser()
		if err != nil {
			return 0, err
		}
		if err := a.userRepo.Upsert(user); err != nil {
			return 0, err
		}
	}

	return len(seeds), nil
}

func loadUserSeeds(path string) ([]UserSeed, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var file usersFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	return file.Users, nil
}

func (s UserSeed) toUser() (*models.User, error) {
	username := strings.TrimSpace(s.Username)
	if username == "" {
		return nil, fmt.Errorf("user seed without username")
	}

	role := models.Role(s.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("user %s has invalid role %q", username, s.Role)
	}

	hash := s.PasswordHash
	if hash == "" {
		if s.Password == "" {
			return nil, fmt.Errorf("user %s has no password", username)
		}
		generated, err := bcrypt.GenerateFromPassword([]byte(s.Password), passwordHashCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", username, err)
		}
		hash = string(generated)
	}

	return &models.User{
		Username:     username,
		FullName:     s.FullName,
		PasswordHash: hash,
		Role:         role,
	}, nil
}
