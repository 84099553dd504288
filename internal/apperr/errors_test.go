package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKindMappings(t *testing.T) {
	tests := []struct {
		kind     Kind
		grpcCode codes.Code
		httpCode int
		name     string
	}{
		{InvalidArgument, codes.InvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{NotFound, codes.NotFound, http.StatusNotFound, "not_found"},
		{AlreadyExists, codes.AlreadyExists, http.StatusConflict, "already_exists"},
		{Unauthenticated, codes.Unauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{PermissionDenied, codes.PermissionDenied, http.StatusForbidden, "permission_denied"},
		{Internal, codes.Internal, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.grpcCode, tt.kind.GRPCCode())
			assert.Equal(t, tt.httpCode, tt.kind.HTTPStatus())
			assert.Equal(t, tt.name, tt.kind.String())
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("consult: %w", NewNotFound("User not found"))

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.Equal(t, Internal, KindOf(errors.New("driver exploded")))
	assert.True(t, IsKind(wrapped, NotFound))
	assert.False(t, IsKind(nil, Internal))
}

func TestErrorsIsComparesKind(t *testing.T) {
	err := NewInvalidArgument("Code expired")

	assert.ErrorIs(t, err, New(InvalidArgument, ""))
	assert.NotErrorIs(t, err, New(NotFound, ""))
}

func TestInternalErrorsHideDetail(t *testing.T) {
	cause := errors.New(`duplicate key value violates unique constraint "users_pkey"`)
	err := NewInternal("could not store user", cause)

	assert.Equal(t, "internal error", PublicMessage(err))
	assert.Contains(t, err.Error(), "users_pkey")
	assert.ErrorIs(t, err, cause)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "internal error", st.Message())
}

func TestGRPCStatusKeepsPublicMessage(t *testing.T) {
	st, ok := status.FromError(NewAlreadyExists("Username or email already in use"))
	require.True(t, ok)
	assert.Equal(t, codes.AlreadyExists, st.Code())
	assert.Equal(t, "Username or email already in use", st.Message())
}

func TestPublicMessageForForeignErrors(t *testing.T) {
	assert.Equal(t, "internal error", PublicMessage(errors.New("boom")))
	assert.Equal(t, "Code expired", PublicMessage(NewInvalidArgument("Code expired")))
}
