package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reserveRequest struct {
	ProductID   string  `json:"product_id" validate:"required,uuid"`
	Quantity    int     `json:"quantity" validate:"required,gte=1"`
	OrderID     string  `json:"order_id" validate:"required,max=8"`
	ExpiresIn   int     `json:"expires_in_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	Currency    string  `json:"currency" validate:"omitempty,iso4217"`
	Status      string  `json:"status" validate:"omitempty,oneof=active resolved"`
	Adjustment  *int    `json:"new_quantity" validate:"required,gte=0"`
	Internal    string  `json:"-" validate:"omitempty,max=1"`
	NoJSONTag   string  `validate:"omitempty,min=3"`
	RatePercent float64 `json:"rate" validate:"lte=100"`
}

func validRequest() reserveRequest {
	zero := 0
	return reserveRequest{
		ProductID:  "3f8a1c2e-9b4d-4e6f-8a1b-2c3d4e5f6a7b",
		Quantity:   2,
		OrderID:    "ord-1",
		Adjustment: &zero,
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(validRequest()))
}

func TestValidate_FieldsUseJSONNames(t *testing.T) {
	req := reserveRequest{
		ProductID:   "nope",
		OrderID:     "order-123456",
		ExpiresIn:   5000,
		Currency:    "XXZ",
		Status:      "pending",
		NoJSONTag:   "ab",
		RatePercent: 101,
	}

	err := Validate(req)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	fields := vErr.Fields()
	assert.Equal(t, "must be a valid UUID", fields["product_id"])
	assert.Equal(t, "is required", fields["quantity"])
	assert.Equal(t, "must be at most 8 characters", fields["order_id"])
	assert.Equal(t, "must be at most 1440", fields["expires_in_minutes"])
	assert.Equal(t, "must be an ISO 4217 currency code", fields["currency"])
	assert.Equal(t, "must be one of: active resolved", fields["status"])
	assert.Equal(t, "is required", fields["new_quantity"])
	assert.Equal(t, "must be at least 3 characters", fields["NoJSONTag"])
	assert.Equal(t, "must be less than or equal to 100", fields["rate"])
}

func TestValidate_ErrorString(t *testing.T) {
	req := validRequest()
	req.Quantity = 0

	err := Validate(req)

	require.Error(t, err)
	assert.Equal(t, "quantity is required", err.Error())
}

func TestValidate_NonStruct(t *testing.T) {
	err := Validate("not a struct")

	require.Error(t, err)
	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr))
}
