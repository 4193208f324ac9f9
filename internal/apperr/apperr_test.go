package apperr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwagner-dev/wheelengine/internal/apperr"
)

func TestKindOf_ClassifiedError(t *testing.T) {
	err := apperr.New(apperr.KindTransient, "broker timeout")
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
	assert.True(t, apperr.Is(err, apperr.KindTransient))
}

func TestKindOf_UnclassifiedErrorIsUnknown(t *testing.T) {
	err := errors.New("plain error")
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(err))
}

func TestWrap_PreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperr.Wrap(apperr.KindTransient, "broker call failed", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestWrap_NilCauseReturnsNil(t *testing.T) {
	assert.Nil(t, apperr.Wrap(apperr.KindTransient, "no-op", nil))
}

func TestKind_String(t *testing.T) {
	cases := map[apperr.Kind]string{
		apperr.KindUnknown:            "unknown",
		apperr.KindTransient:          "transient",
		apperr.KindPermanent:          "permanent",
		apperr.KindDataShape:          "data_shape",
		apperr.KindResourceExhausted:  "resource_exhausted",
		apperr.KindStorage:            "storage",
		apperr.KindInvariantViolation: "invariant_violation",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestError_IncludesWrappedMessage(t *testing.T) {
	cause := errors.New("boom")
	err := apperr.Wrap(apperr.KindPermanent, "submit failed", cause)
	assert.Contains(t, err.Error(), "submit failed")
	assert.Contains(t, err.Error(), "boom")
}
