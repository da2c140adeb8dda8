package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type typedErr struct{ t ErrorType }

func (e typedErr) Error() string        { return string(e.t) }
func (e typedErr) ErrorType() ErrorType { return e.t }

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("failed to write report", cause)

	assert.Equal(t, "[STORAGE] failed to write report: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrTypeStorage, err.ErrorType())

	err.WithContext("report_id", "abc")
	assert.Equal(t, "abc", err.Context["report_id"])

	assert.Equal(t, "[NOT_FOUND] report not found", NewNotFoundError("report").Error())
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"app error", NewParsingError("bad row", nil), ErrTypeParsing},
		{"wrapped app error", fmt.Errorf("scan: %w", NewAppValidationError("bad name")), ErrTypeValidation},
		{"custom typed error", typedErr{ErrTypeNotFound}, ErrTypeNotFound},
		{"wrapped custom typed error", fmt.Errorf("outer: %w", typedErr{ErrTypeParsing}), ErrTypeParsing},
		{"plain error", errors.New("boom"), ErrTypeInternal},
		{"config error", NewConfigError("bad port", nil), ErrTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
			assert.True(t, IsType(tt.err, tt.want))
		})
	}

	assert.False(t, IsType(nil, ErrTypeInternal))
}
