package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	notFound := NewNotFoundError("task review")
	conflict := NewConflictError("task review is cancelled")
	shutdown := NewShutdownError("mongo client disconnected")

	tests := []struct {
		name         string
		err          error
		wantNotFound bool
		wantConflict bool
		wantShutdown bool
	}{
		{name: "not found", err: notFound, wantNotFound: true},
		{name: "wrapped not found", err: errors.Wrap(notFound, "getting review"), wantNotFound: true},
		{name: "conflict", err: errors.Wrap(conflict, "cancelling"), wantConflict: true},
		{name: "shutdown", err: errors.Wrap(shutdown, "getting review"), wantShutdown: true},
		{name: "other", err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantNotFound, IsNotFound(tt.err))
			assert.Equal(t, tt.wantConflict, IsConflict(tt.err))
			assert.Equal(t, tt.wantShutdown, IsShutdown(tt.err))
		})
	}

	assert.Equal(t, "task review not found", notFound.Error())
	assert.Equal(t, 404, notFound.StatusCode())
	assert.Equal(t, 409, conflict.StatusCode())
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "week: this field is required", NewValidationError(nil, FieldError{Field: "week", Error: "this field is required"}).Error())
	assert.Equal(t, "bad input", NewValidationError(errors.New("bad input")).Error())
	assert.Equal(t, "", NewValidationError(nil).Error())
}
