package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quill/internal/audit"
	"quill/internal/mailer"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const confirmationTTL = 48 * time.Hour

// RegisterInput carries the signup fields.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Website  string
}

// UserService manages accounts, credentials and roles.
type UserService struct {
	users repository.UserRepository
	mail  mailer.Mailer
	audit audit.Sink
	log   *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(users repository.UserRepository, mail mailer.Mailer, sink audit.Sink, log *slog.Logger) *UserService {
	if mail == nil {
		mail = mailer.NopMailer{}
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, mail: mail, audit: sink, log: log}
}

// Register creates a new account with the User role and sends a confirmation
// email. The email is best-effort; a relay failure does not fail the signup.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := validation.Username(input.Username); err != nil {
		return nil, err
	}
	if err := validation.Email(input.Email); err != nil {
		return nil, err
	}
	if err := validation.Password(input.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	expires := time.Now().Add(confirmationTTL)
	user := &models.User{
		Username:            input.Username,
		Email:               input.Email,
		PasswordHash:        string(hash),
		Website:             input.Website,
		Role:                models.RoleUser,
		ConfirmationToken:   uuid.NewString(),
		ConfirmationExpires: &expires,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewConflictError("Username or email already taken")
		}
		return nil, models.NewInternalError(err)
	}

	if err := s.mail.SendConfirmation(ctx, user.Email, user.Username, user.ConfirmationToken); err != nil {
		s.log.WarnContext(ctx, "confirmation email failed",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
	}

	s.audit.Record(ctx, "auth.signup", auditJSON(map[string]string{"username": user.Username}), "", &user.ID)
	return user, nil
}

// Authenticate checks the credentials and returns the account. The same
// NotFound error covers an unknown username and a wrong password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", username)
		}
		return nil, models.NewInternalError(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

// ConfirmEmail marks the account confirmed if the token matches and has not
// expired.
func (s *UserService) ConfirmEmail(ctx context.Context, token string) error {
	if token == "" {
		return models.NewValidationError("Missing confirmation token")
	}
	user, err := s.users.GetByConfirmationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Confirmation", token)
		}
		return models.NewInternalError(err)
	}
	if user.ConfirmationExpires != nil && time.Now().After(*user.ConfirmationExpires) {
		return models.NewValidationError("Confirmation token expired")
	}

	user.EmailConfirmed = true
	user.ConfirmationToken = ""
	user.ConfirmationExpires = nil
	if err := s.users.Update(ctx, user); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetUser fetches one account by ID.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, "User", id)
	}
	return user, nil
}

// ListUsers returns all accounts. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actor models.Actor) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Only admins can list users")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ToggleRole flips a user between the two roles. Admin only; admins cannot
// demote themselves, which keeps at least one admin around.
func (s *UserService) ToggleRole(ctx context.Context, actor models.Actor, userID uint) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Only admins can change roles")
	}
	if actor.ID == userID {
		return nil, models.NewValidationError("Admins cannot change their own role")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translateLookupError(err, "User", userID)
	}

	user.Role = user.Role.Toggle()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.audit.Record(ctx, "users.toggle_role",
		auditJSON(map[string]interface{}{"user_id": userID, "role": user.Role}), "", &actor.ID)
	return user, nil
}
