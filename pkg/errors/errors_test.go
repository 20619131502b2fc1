package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ServiceError
		want string
	}{
		{
			name: "without underlying error",
			err:  New(ErrCodeNotFound, "resource not found", http.StatusNotFound),
			want: "[NOT_FOUND] resource not found",
		},
		{
			name: "with underlying error",
			err:  Wrap(ErrCodeOperational, "template rendering failed", http.StatusInternalServerError, errors.New("unexpected token")),
			want: "[OPERATIONAL] template rendering failed: unexpected token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	underlying := errors.New("boom")
	err := Wrap(ErrCodeLifecycle, "init failed", http.StatusInternalServerError, underlying)

	assert.Equal(t, underlying, err.Unwrap())
	assert.True(t, errors.Is(err, underlying))
}

func TestServiceError_WithDetailsAndField(t *testing.T) {
	err := Validation("manifest invalid").
		WithDetails("plugin", "crm-core").
		WithField("version", "not a valid semver").
		WithField("name", "must match identifier pattern")

	assert.Equal(t, "crm-core", err.Details["plugin"])
	assert.Len(t, err.Fields, 2)
	assert.Equal(t, "version", err.Fields[0].Field)
}

func TestInvalidManifestCollectsFields(t *testing.T) {
	fields := []FieldError{
		{Field: "name", Reason: "required"},
		{Field: "version", Reason: "invalid semver"},
	}
	err := InvalidManifest("crm-core", fields)

	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Len(t, err.Fields, 2)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
}

func TestDependencyCycleNamesMembers(t *testing.T) {
	err := DependencyCycle([]string{"a", "b"})

	assert.Equal(t, ErrCodeDependency, err.Code)
	assert.Equal(t, []string{"a", "b"}, err.Details["members"])
}

func TestPermissionDeniedHTTPStatus(t *testing.T) {
	err := PermissionDenied("no permission for action 'delete' on object 'account'")

	assert.Equal(t, http.StatusForbidden, err.HTTPStatus)
	assert.Equal(t, ErrCodePermissionDenied, err.Code)
}

func TestGetHTTPStatusDefaultsWhenNotServiceError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain error")))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(NotFound("job", "j1")))
}

func TestIsServiceErrorAndGetServiceError(t *testing.T) {
	err := RetriesExhausted("job-1", 3)

	assert.True(t, IsServiceError(err))
	assert.False(t, IsServiceError(errors.New("plain")))

	extracted := GetServiceError(err)
	if assert.NotNil(t, extracted) {
		assert.Equal(t, "job-1", extracted.Details["jobId"])
	}
}
