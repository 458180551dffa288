package utils

import (
	"testing"
	"time"

	"socialposts/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type signup struct {
	Name  string `json:"name" validate:"required,alphaspace"`
	Email string `json:"email" validate:"required,emailpattern"`
	Age   int    `json:"age" validate:"gte=18,lte=100"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(signup{Name: "Ada Lovelace", Email: "ada@example.com", Age: 36}))

	err := Validate(signup{Name: "Ada1", Email: "ada@example.com", Age: 36})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "name")

	err = Validate(signup{Name: "Ada", Email: "not-an-email", Age: 36})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "email")

	err = Validate(signup{Name: "Ada", Email: "ada@example.com", Age: 17})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "age")
}

func TestEmailPattern(t *testing.T) {
	for _, email := range []string{"a@b.co", "first.last@mail.example.org", "x-y@d-e.com"} {
		assert.True(t, IsEmail(email), email)
	}
	for _, email := range []string{"", "@b.co", "a@b", "a@b.c", "a@b.comma", "a b@c.com"} {
		assert.False(t, IsEmail(email), email)
	}
}

func TestAlphaSpace(t *testing.T) {
	assert.True(t, IsAlphaSpace("Mary Ann"))
	assert.False(t, IsAlphaSpace("José"))
	assert.False(t, IsAlphaSpace("R2D2"))
	assert.False(t, IsAlphaSpace(""))
}

func TestParseId(t *testing.T) {
	id, err := ParseId("userId", " 65a1b2c3d4e5f60718293a4b ")
	require.NoError(t, err)
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", id.Hex())

	_, err = ParseId("userId", "   ")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = ParseId("userId", "xyz")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hashed)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte("secret")))
}

func TestFormatDate(t *testing.T) {
	date := time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "03/07/2024", FormatDate(date))
}
