package firestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorClassifiesCodes(t *testing.T) {
	tests := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{code: codes.NotFound, notFound: true},
		{code: codes.Aborted, conflict: true},
		{code: codes.FailedPrecondition, conflict: true},
		{code: codes.Unavailable, unavailable: true},
		{code: codes.PermissionDenied},
	}
	for _, tc := range tests {
		err := WrapError("carrinhos.get", status.Error(tc.code, "boom"))
		var repoErr *Error
		if !assert.True(t, errors.As(err, &repoErr), tc.code.String()) {
			continue
		}
		assert.Equal(t, tc.notFound, repoErr.IsNotFound(), tc.code.String())
		assert.Equal(t, tc.conflict, repoErr.IsConflict(), tc.code.String())
		assert.Equal(t, tc.unavailable, repoErr.IsUnavailable(), tc.code.String())
		assert.Contains(t, repoErr.Error(), "carrinhos.get")
	}
}

func TestWrapErrorPassesCancellationThrough(t *testing.T) {
	assert.Nil(t, WrapError("op", nil))
	assert.ErrorIs(t, WrapError("op", context.Canceled), context.Canceled)
	assert.ErrorIs(t, WrapError("op", status.Error(codes.DeadlineExceeded, "slow")), context.DeadlineExceeded)
}
