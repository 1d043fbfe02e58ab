package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/validation"
)

type startSessionRequest struct {
	PlaylistID     string `json:"playlist_id" validate:"required"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" validate:"gte=0,lte=3600"`
}

func TestValidate_Valid(t *testing.T) {
	v := validation.New()

	err := v.Validate(startSessionRequest{PlaylistID: "pl-1", TimeoutSeconds: 60})
	require.NoError(t, err)
}

func TestValidate_MissingField(t *testing.T) {
	v := validation.New()

	err := v.Validate(startSessionRequest{TimeoutSeconds: 60})
	require.ErrorIs(t, err, errors.ErrValidation)

	var domainErr *errors.Error
	require.ErrorAs(t, err, &domainErr)

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["playlist_id"])
}

func TestValidate_RangeViolation(t *testing.T) {
	v := validation.New()

	err := v.Validate(startSessionRequest{PlaylistID: "pl-1", TimeoutSeconds: 7200})
	require.ErrorIs(t, err, errors.ErrValidation)
}
