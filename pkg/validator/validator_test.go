package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Event string `json:"event" validate:"required,uuid"`
	Email string `json:"verification_email" validate:"omitempty,email"`
	Code  string `json:"code" validate:"omitempty,invitation_code"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := testPayload{
		Event: "6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b",
		Email: "staff@example.com",
		Code:  "6f1c2a8e",
	}
	require.NoError(t, ValidateStruct(payload))
}

func TestValidateStructFailures(t *testing.T) {
	err := ValidateStruct(testPayload{Event: "not-a-uuid", Email: "invalid", Code: "abc"})
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 3)

	fields := map[string]string{}
	for _, v := range vErrs {
		fields[v.Field] = v.Tag
	}
	require.Equal(t, "uuid", fields["event"])
	require.Equal(t, "email", fields["verification_email"])
	require.Equal(t, "invitation_code", fields["code"])
}

func TestValueHelpers(t *testing.T) {
	require.True(t, IsUUID("6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"))
	require.False(t, IsUUID("6f1c2a8e"))
	require.False(t, IsUUID(""))

	require.True(t, IsEmail("a@b.com"))
	require.False(t, IsEmail("a@"))

	require.NoError(t, ValidateVar("0c1d2e3f4a5b", "verification_code"))
	require.Error(t, ValidateVar("0c1d2e3f4a5", "verification_code"))
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, RegisterValidation("booth_label", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "main"
	}))

	type labelled struct {
		Label string `json:"label" validate:"booth_label"`
	}
	require.NoError(t, ValidateStruct(labelled{Label: "main"}))
	require.Error(t, ValidateStruct(labelled{Label: "side"}))
}
