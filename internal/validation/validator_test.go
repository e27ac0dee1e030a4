package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string  `json:"name" validate:"required,max=5"`
	SeatIDs []int64 `json:"seat_ids" validate:"required,min=1,max=2,unique"`
	Status  string  `json:"status" validate:"omitempty,oneof=active inactive"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(&sample{Name: "ok", SeatIDs: []int64{1}}))

	err := ValidateStruct(&sample{Name: "too long", SeatIDs: []int64{1, 1}, Status: "gone"})
	require.Error(t, err)

	var ve *RequestValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Fields, 3)
	assert.Equal(t, "name", ve.Fields[0].Field)
	assert.Equal(t, "name must be at most 5 characters", ve.Fields[0].Message)
	assert.Equal(t, "seat_ids must not contain duplicates", ve.Fields[1].Message)
	assert.Equal(t, "status must be one of: active inactive", ve.Fields[2].Message)
}

func TestValidateStruct_ListBounds(t *testing.T) {
	err := ValidateStruct(&sample{Name: "a", SeatIDs: []int64{1, 2, 3}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seat_ids must contain at most 2 items")
}
