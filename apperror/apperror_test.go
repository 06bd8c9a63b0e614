package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsSurviveWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("saving issue: %w", Write("Failed to create issue", cause))

	assert.True(t, errors.Is(err, ErrWrite))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrRead))

	var appErr *AppError
	if assert.True(t, errors.As(err, &appErr)) {
		assert.Equal(t, "Failed to create issue", appErr.Message)
	}
}

func TestValidationFailedKeepsField(t *testing.T) {
	err := ValidationFailed("phone", "Phone and address are required for citizens")
	assert.Equal(t, "phone", err.Field)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "User not found", Message(NotFound("User not found")))
	assert.Equal(t, "Something went wrong", Message(errors.New("dial tcp 10.0.0.1:27017: i/o timeout")))
}

func TestFromValidationPicksFirstRule(t *testing.T) {
	type form struct {
		Email string `validate:"required"`
		Name  string `validate:"required"`
		Age   int    `validate:"min=18"`
	}
	rules := []Rule{
		{Key: "Name.required", Field: "name", Message: "Name is required"},
		{Key: "Email.required", Field: "email", Message: "Email is required"},
	}

	err := FromValidation(validator.New().Struct(form{Age: 20}), rules)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "name", appErr.Field)
	assert.Equal(t, "Name is required", appErr.Message)
	assert.ErrorIs(t, err, ErrValidation)

	err = FromValidation(validator.New().Struct(form{Email: "a", Name: "b", Age: 3}), rules)
	assert.Equal(t, "Invalid Age", Message(err))

	assert.NoError(t, FromValidation(nil, rules))
}
