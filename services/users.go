package services

import (
	"cmp"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"cityconnect-be/apperror"
	"cityconnect-be/backend"
	"cityconnect-be/models"
)

type UserService struct {
	users  backend.UserStore
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(users backend.UserStore, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger.Named("users"), now: time.Now}
}

func newProfile(id string, fields models.ProfileFields, at time.Time) *models.User {
	user := &models.User{
		ID:        id,
		Name:      strings.TrimSpace(fields.Name),
		Email:     normalizeEmail(fields.Email),
		Role:      fields.Role,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if fields.Role.IsStaff() {
		user.Department = fields.Department
		user.EmployeeID = fields.EmployeeID
	} else {
		user.Phone = fields.Phone
		user.Address = fields.Address
	}
	return user
}

var profileRules = []apperror.Rule{
	{Key: "Name.notblank", Field: "name", Message: "Name is required"},
	{Key: "Role.required", Field: "role", Message: "Invalid role"},
	{Key: "Role.role", Field: "role", Message: "Invalid role"},
	{Key: "Department.required_unless", Field: "department", Message: "Department and Employee ID are required for staff/admin"},
	{Key: "EmployeeID.required_unless", Field: "department", Message: "Department and Employee ID are required for staff/admin"},
	{Key: "Department.department", Field: "department", Message: "Invalid department"},
	{Key: "Phone.required_if", Field: "phone", Message: "Phone and address are required for citizens"},
	{Key: "Address.required_if", Field: "phone", Message: "Phone and address are required for citizens"},
}

// validateProfile enforces the role-conditional required fields.
func validateProfile(fields models.ProfileFields) error {
	return apperror.FromValidation(models.Validate.Struct(fields), profileRules)
}

// CreateUserProfile writes the profile document keyed by the identity id,
// replacing any existing one.
func (s *UserService) CreateUserProfile(ctx context.Context, userID string, fields models.ProfileFields) (out Envelope[*models.User]) {
	defer guard(s.logger, "CreateUserProfile", &out)

	if userID == "" {
		return fail[*models.User](apperror.ValidationFailed("userId", "User id is required"))
	}
	if fields.Role == "" {
		fields.Role = models.Citizen
	}
	if err := validateProfile(fields); err != nil {
		return fail[*models.User](err)
	}

	user := newProfile(userID, fields, s.now())
	if err := s.users.Put(ctx, user); err != nil {
		s.logger.Error("writing profile failed", zap.String("userID", userID), zap.Error(err))
		return fail[*models.User](apperror.Write("Failed to create user profile", err))
	}
	return ok(user)
}

// CreateOwnProfile creates the caller's missing profile, for identities
// whose profile write failed at registration. The profile is always a
// citizen's and an existing one is never replaced.
func (s *UserService) CreateOwnProfile(ctx context.Context, userID string, fields models.ProfileFields) (out Envelope[*models.User]) {
	defer guard(s.logger, "CreateOwnProfile", &out)

	if userID == "" {
		return fail[*models.User](apperror.ValidationFailed("userId", "User id is required"))
	}
	fields.Role = models.Citizen
	if err := validateProfile(fields); err != nil {
		return fail[*models.User](err)
	}

	user := newProfile(userID, fields, s.now())
	err := s.users.Create(ctx, user)
	if errors.Is(err, backend.ErrExists) {
		return fail[*models.User](apperror.Conflict("User profile already exists"))
	}
	if err != nil {
		s.logger.Error("creating profile failed", zap.String("userID", userID), zap.Error(err))
		return fail[*models.User](apperror.Write("Failed to create user profile", err))
	}
	return ok(user)
}

// SetUserRole changes a user's role, keeping the profile's other fields.
// The role-conditional fields must be complete for the new role.
func (s *UserService) SetUserRole(ctx context.Context, userID string, change models.RoleChange) (out Envelope[*models.User]) {
	defer guard(s.logger, "SetUserRole", &out)

	current, err := s.users.Get(ctx, userID)
	if errors.Is(err, backend.ErrNotFound) {
		return fail[*models.User](apperror.NotFound("User not found"))
	}
	if err != nil {
		s.logger.Error("reading profile failed", zap.String("userID", userID), zap.Error(err))
		return fail[*models.User](apperror.Read("Failed to load user profile", err))
	}

	fields := models.ProfileFields{
		Name:       current.Name,
		Email:      current.Email,
		Role:       change.Role,
		Phone:      cmp.Or(change.Phone, current.Phone),
		Address:    cmp.Or(change.Address, current.Address),
		Department: cmp.Or(change.Department, current.Department),
		EmployeeID: cmp.Or(change.EmployeeID, current.EmployeeID),
	}
	if err := validateProfile(fields); err != nil {
		return fail[*models.User](err)
	}

	user := newProfile(userID, fields, s.now())
	user.CreatedAt = current.CreatedAt
	if err := s.users.Put(ctx, user); err != nil {
		s.logger.Error("changing role failed", zap.String("userID", userID), zap.Error(err))
		return fail[*models.User](apperror.Write("Failed to update user role", err))
	}
	s.logger.Info("role changed", zap.String("userID", userID),
		zap.String("from", string(current.Role)), zap.String("to", string(user.Role)))
	return ok(user)
}

func (s *UserService) GetUserProfile(ctx context.Context, userID string) (out Envelope[*models.User]) {
	defer guard(s.logger, "GetUserProfile", &out)

	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, backend.ErrNotFound) {
		return fail[*models.User](apperror.NotFound("User not found"))
	}
	if err != nil {
		s.logger.Error("reading profile failed", zap.String("userID", userID), zap.Error(err))
		return fail[*models.User](apperror.Read("Failed to load user profile", err))
	}
	return ok(user)
}

// UpdateUserProfile applies patch. Only the fields listed in ProfilePatch
// can change.
func (s *UserService) UpdateUserProfile(ctx context.Context, userID string, patch models.ProfilePatch) (out Envelope[Done]) {
	defer guard(s.logger, "UpdateUserProfile", &out)

	if patch.Empty() {
		return fail[Done](apperror.ValidationFailed("", "Nothing to update"))
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return fail[Done](apperror.ValidationFailed("name", "Name is required"))
	}
	if patch.Department != nil && !patch.Department.Valid() {
		return fail[Done](apperror.ValidationFailed("department", "Invalid department"))
	}

	err := s.users.Patch(ctx, userID, patch, s.now())
	if errors.Is(err, backend.ErrNotFound) {
		return fail[Done](apperror.NotFound("User not found"))
	}
	if err != nil {
		s.logger.Error("updating profile failed", zap.String("userID", userID), zap.Error(err))
		return fail[Done](apperror.Write("Failed to update user profile", err))
	}
	return ok(Done{})
}

// GetStaffUsers lists staff and admin profiles in no particular order.
func (s *UserService) GetStaffUsers(ctx context.Context) (out Envelope[[]models.User]) {
	defer guard(s.logger, "GetStaffUsers", &out)

	users, err := s.users.ListByRoles(ctx, models.Staff, models.Admin)
	if err != nil {
		s.logger.Error("listing staff failed", zap.Error(err))
		return fail[[]models.User](apperror.Read("Failed to load staff users", err))
	}
	return ok(users)
}
