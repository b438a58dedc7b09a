package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Name           string `validate:"required"`
	Quantity       int    `validate:"required,gt=0"`
	UnitPriceCents int64  `validate:"gte=0"`
}

type testCart struct {
	Items    []testItem `validate:"required,min=1,dive"`
	State    string     `validate:"required,len=2"`
	Optimize string     `validate:"omitempty,oneof=price speed margin balanced"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		c := testCart{
			Items: []testItem{{Name: "milk", Quantity: 2, UnitPriceCents: 349}},
			State: "CA",
		}

		err := ValidateStruct(&c)
		assert.NoError(t, err)
	})

	t.Run("missing items", func(t *testing.T) {
		c := testCart{State: "CA"}

		err := ValidateStruct(&c)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Items")
	})

	t.Run("empty items slice", func(t *testing.T) {
		c := testCart{Items: []testItem{}, State: "CA"}

		err := ValidateStruct(&c)
		assert.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields["Items"], "at least 1")
	})

	t.Run("nested item failure", func(t *testing.T) {
		c := testCart{
			Items: []testItem{{Name: "milk", Quantity: 0}},
			State: "CA",
		}

		err := ValidateStruct(&c)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Quantity")
	})

	t.Run("bad state code", func(t *testing.T) {
		c := testCart{
			Items: []testItem{{Name: "milk", Quantity: 1}},
			State: "California",
		}

		err := ValidateStruct(&c)
		assert.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields["State"], "exactly 2")
	})

	t.Run("unsupported strategy", func(t *testing.T) {
		c := testCart{
			Items:    []testItem{{Name: "milk", Quantity: 1}},
			State:    "CA",
			Optimize: "vibes",
		}

		err := ValidateStruct(&c)
		assert.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields["Optimize"], "must be one of")
	})
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "validation failed",
		Fields: map[string]string{
			"field1": "error1",
		},
	}

	assert.Equal(t, "validation failed", err.Error())
}

func TestIsValidationError(t *testing.T) {
	t.Run("is validation error", func(t *testing.T) {
		err := &ValidationError{
			Message: "test",
			Fields:  map[string]string{},
		}

		assert.True(t, IsValidationError(err))
	})

	t.Run("is not validation error", func(t *testing.T) {
		err := assert.AnError

		assert.False(t, IsValidationError(err))
	})
}

func TestGetValidationFields(t *testing.T) {
	t.Run("gets fields from validation error", func(t *testing.T) {
		fields := map[string]string{
			"field1": "error1",
			"field2": "error2",
		}
		err := &ValidationError{
			Message: "test",
			Fields:  fields,
		}

		extracted := GetValidationFields(err)
		assert.Equal(t, fields, extracted)
	})

	t.Run("returns nil for non-validation error", func(t *testing.T) {
		err := assert.AnError

		extracted := GetValidationFields(err)
		assert.Nil(t, extracted)
	})
}

func TestNewValidationError(t *testing.T) {
	c := testCart{}

	err := ValidateStruct(&c)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)

	assert.Equal(t, "validation failed", validationErr.Message)
	assert.Contains(t, validationErr.Fields, "Items")
	assert.Contains(t, validationErr.Fields, "State")
}
