package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"strings"

	"go-storefront/internal/apperr"
	"go-storefront/internal/audit"
	"go-storefront/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type NewUser struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6,max=72"`
	Role     models.Role `json:"role" validate:"required,oneof=ADMIN CUSTOMER"`
}

type Registration struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type BootstrapRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginResult is handed back to the client after login or registration.
type LoginResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type UserService struct {
	db             *gorm.DB
	issuer         *Issuer
	bootstrapToken string
	cost           int
}

func NewUserService(db *gorm.DB, issuer *Issuer, bootstrapToken string) *UserService {
	return &UserService{db: db, issuer: issuer, bootstrapToken: bootstrapToken, cost: bcrypt.DefaultCost}
}

// WithCost returns a copy hashing at the given bcrypt cost.
func (s *UserService) WithCost(cost int) *UserService {
	cp := *s
	cp.cost = cost
	return &cp
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks the password and issues a token. Unknown email and wrong
// password fail the same way.
func (s *UserService) Login(ctx context.Context, in Credentials) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load user")
	}
	if !CheckPassword(user.PasswordHash, in.Password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.issue(user)
}

// Create adds a user on behalf of an administrator.
func (s *UserService) Create(ctx context.Context, actorID uint, in NewUser) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}
	return s.create(ctx, actorID, in.Email, in.Password, in.Role)
}

// Register signs up a customer and logs them in.
func (s *UserService) Register(ctx context.Context, in Registration) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.create(ctx, 0, in.Email, in.Password, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return s.issue(*user)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, apperr.Internal(err, "list users")
	}
	return users, nil
}

// Bootstrap creates the first administrator. It needs the configured token
// and only works while no administrator exists.
func (s *UserService) Bootstrap(ctx context.Context, token string, in BootstrapRequest) (*models.User, error) {
	if s.bootstrapToken == "" {
		return nil, apperr.Forbidden("bootstrap is disabled")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.bootstrapToken)) != 1 {
		return nil, apperr.Forbidden("invalid bootstrap token")
	}
	in.Email = normalizeEmail(in.Email)
	if err := apperr.ValidateStruct(in); err != nil {
		return nil, err
	}

	var admins int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error
	if err != nil {
		return nil, apperr.Internal(err, "count admins")
	}
	if admins > 0 {
		return nil, apperr.Forbidden("an administrator already exists")
	}

	user, err := s.create(ctx, 0, in.Email, in.Password, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	log.Printf("🔑 Bootstrapped administrator %s", user.Email)
	return user, nil
}

func (s *UserService) create(ctx context.Context, actorID uint, email, password string, role models.Role) (*models.User, error) {
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}
	user := models.User{Email: email, PasswordHash: hash, Role: role}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return apperr.FromGorm(err, "user "+email)
		}
		actor := actorID
		if actor == 0 {
			actor = user.ID
		}
		return audit.Record(tx, audit.Entry{
			ActorID:  actor,
			Action:   audit.ActionCreate,
			Entity:   "User",
			EntityID: user.ID,
			Metadata: map[string]interface{}{"email": email, "role": role},
		})
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Internal(err, "create user")
	}
	return &user, nil
}

func (s *UserService) issue(user models.User) (*LoginResult, error) {
	token, err := s.issuer.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Internal(err, "sign token")
	}
	return &LoginResult{Token: token, User: user}, nil
}
