package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"bahari-bites/internal/config"
	"bahari-bites/internal/logger"
	"bahari-bites/internal/models"
	"bahari-bites/internal/storage"
	"bahari-bites/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// Claims is the JWT payload issued at login.
type Claims struct {
	AccountID int64       `json:"account_id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AccountService handles registration and credential-based login. Passwords
// are stored as bcrypt hashes only.
type AccountService struct {
	store storage.Store
	cfg   config.JWTConfig
	log   *logger.Logger
}

func NewAccountService(store storage.Store, cfg config.JWTConfig, log *logger.Logger) *AccountService {
	return &AccountService{store: store, cfg: cfg, log: log}
}

// Register creates a customer account. Staff and admin roles are only
// assignable through seeding or an existing admin, never self-registration.
func (s *AccountService) Register(req *models.RegisterRequest) (*models.Account, error) {
	if len(req.Password) < 6 {
		return nil, ErrWeakPassword
	}

	phone := ""
	if req.Phone != "" {
		normalized, err := utils.NormalizePhone(req.Phone)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Username:     req.Username,
		Email:        req.Email,
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
	}
	if err := s.store.CreateAccount(account); err != nil {
		return nil, err
	}

	s.log.LogSecurity("REGISTER", fmt.Sprintf("Account %d registered as %s", account.ID, account.Username))
	return account, nil
}

// Login verifies the password for a username or email and issues a signed
// token. A missing account and a wrong password are indistinguishable to the
// caller.
func (s *AccountService) Login(req *models.LoginRequest) (*models.LoginResponse, error) {
	account, err := s.store.GetAccountByCredential(req.Credential)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		s.log.LogSecurity("LOGIN_FAILED", fmt.Sprintf("Bad password for %s", account.Username))
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(account)
	if err != nil {
		return nil, err
	}

	s.log.LogSecurity("LOGIN", fmt.Sprintf("Account %d logged in", account.ID))
	return &models.LoginResponse{
		Token:    token,
		Username: account.Username,
		Role:     account.Role,
	}, nil
}

// ParseToken validates a token string and returns its claims.
func (s *AccountService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

func (s *AccountService) issueToken(account *models.Account) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
			Subject:   fmt.Sprintf("%d", account.ID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
