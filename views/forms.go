package views

import (
	"strings"

	"cityconnect-be/apperror"
	"cityconnect-be/models"
)

// LoginForm is the sign-in form. Validate runs before any backend call.
type LoginForm struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

var loginRules = []apperror.Rule{
	{Key: "Email.notblank", Field: "email", Message: "Email and password are required"},
	{Key: "Password.required", Field: "email", Message: "Email and password are required"},
}

func (f LoginForm) Validate() error {
	return apperror.FromValidation(models.Validate.Struct(f), loginRules)
}

// RegisterForm is the sign-up form. Which contact fields are required
// depends on the selected role.
type RegisterForm struct {
	Name            string            `json:"name" validate:"notblank"`
	Email           string            `json:"email" validate:"notblank"`
	Password        string            `json:"password" validate:"required,min=6"`
	ConfirmPassword string            `json:"confirmPassword" validate:"eqfield=Password"`
	Role            models.Role       `json:"role" validate:"role"`
	Phone           string            `json:"phone" validate:"required_if=Role citizen"`
	Address         string            `json:"address" validate:"required_if=Role citizen"`
	Department      models.Department `json:"department" validate:"required_unless=Role citizen,department"`
	EmployeeID      string            `json:"employeeId" validate:"required_unless=Role citizen"`
}

// registerRules report problems in the order the form shows them.
var registerRules = []apperror.Rule{
	{Key: "Email.notblank", Field: "email", Message: "Email and password are required"},
	{Key: "Password.required", Field: "email", Message: "Email and password are required"},
	{Key: "Name.notblank", Field: "name", Message: "Name is required"},
	{Key: "ConfirmPassword.eqfield", Field: "confirmPassword", Message: "Passwords do not match"},
	{Key: "Password.min", Field: "password", Message: "Password must be at least 6 characters long"},
	{Key: "Role.role", Field: "role", Message: "Invalid role"},
	{Key: "Phone.required_if", Field: "phone", Message: "Phone and address are required for citizens"},
	{Key: "Address.required_if", Field: "phone", Message: "Phone and address are required for citizens"},
	{Key: "Department.required_unless", Field: "department", Message: "Department and Employee ID are required for staff/admin"},
	{Key: "EmployeeID.required_unless", Field: "department", Message: "Department and Employee ID are required for staff/admin"},
	{Key: "Department.department", Field: "department", Message: "Invalid department"},
}

func (f RegisterForm) role() models.Role {
	if f.Role == "" {
		return models.Citizen
	}
	return f.Role
}

func (f RegisterForm) Validate() error {
	f.Role = f.role()
	return apperror.FromValidation(models.Validate.Struct(f), registerRules)
}

// Profile is the profile document content the form describes.
func (f RegisterForm) Profile() models.ProfileFields {
	return models.ProfileFields{
		Name:       strings.TrimSpace(f.Name),
		Email:      f.Email,
		Role:       f.role(),
		Phone:      f.Phone,
		Address:    f.Address,
		Department: f.Department,
		EmployeeID: f.EmployeeID,
	}
}

// IssueForm is the report-an-issue form.
type IssueForm struct {
	Title       string               `json:"title" validate:"notblank,max=200"`
	Description string               `json:"description" validate:"notblank,max=1000"`
	Category    models.IssueCategory `json:"category" validate:"required,category"`
	Priority    models.IssuePriority `json:"priority" validate:"priority"`
	Location    string               `json:"location"`
	ImageURLs   []string             `json:"imageUrls"`
}

var issueRules = []apperror.Rule{
	{Key: "Title.notblank", Field: "title", Message: "Title is required"},
	{Key: "Title.max", Field: "title", Message: "Title must be at most 200 characters"},
	{Key: "Description.notblank", Field: "description", Message: "Description is required"},
	{Key: "Description.max", Field: "description", Message: "Description must be at most 1000 characters"},
	{Key: "Category.required", Field: "category", Message: "Please select a category"},
	{Key: "Category.category", Field: "category", Message: "Invalid category"},
	{Key: "Priority.priority", Field: "priority", Message: "Invalid priority"},
}

func (f IssueForm) Validate() error {
	return apperror.FromValidation(models.Validate.Struct(f), issueRules)
}

// NewIssue builds the creation request for submitter.
func (f IssueForm) NewIssue(submittedBy string) models.NewIssue {
	return models.NewIssue{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Category:    f.Category,
		Priority:    f.Priority,
		Location:    strings.TrimSpace(f.Location),
		ImageURLs:   f.ImageURLs,
		SubmittedBy: submittedBy,
	}
}
