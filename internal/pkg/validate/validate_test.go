package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-push/internal/domain"
)

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(domain.RegisterTokenRequest{Token: "tok", Platform: "ios"}))

	err := Struct(domain.RegisterTokenRequest{Platform: "symbian"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Contains(t, err.Error(), "field 'token' failed 'required'")
	assert.Contains(t, err.Error(), "field 'platform' failed 'oneof' (android ios web)")
}

func TestStruct_UntaggedFieldsUseGoName(t *testing.T) {
	type options struct {
		UniversityID string `validate:"required"`
		Hidden       string `json:"-" validate:"required"`
	}
	err := Struct(options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'UniversityID' failed 'required'")
}

func TestStruct_NonStructIsNotBadRequest(t *testing.T) {
	err := Struct(42)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrBadRequest)
}
