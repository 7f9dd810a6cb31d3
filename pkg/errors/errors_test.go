package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"judgment not found", errors.ErrCodeJudgmentNotFound, "judgment 12345/67 not found"},
		{"invalid param", errors.CodeInvalidParam, "min degree must not be negative"},
		{"no input", errors.ErrCodeNoInput, "document collection is empty"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	ae := errors.Newf(errors.ErrCodeGraphConfigInvalid, "min degree %d out of range", -1)
	assert.Equal(t, "min degree -1 out of range", ae.Message)
	assert.Equal(t, errors.ErrCodeGraphConfigInvalid, ae.Code)
}

func TestAppError_ErrorString(t *testing.T) {
	ae := errors.New(errors.ErrCodeNoInput, "empty")
	assert.Equal(t, "[JDG_001] empty", ae.Error())

	withDetail := ae.WithDetail("source=stdin")
	assert.Equal(t, "[JDG_001] empty: source=stdin", withDetail.Error())

	wrapped := errors.Wrap(fmt.Errorf("boom"), errors.ErrCodeDatabaseError, "upsert failed")
	assert.Equal(t, "[COMMON_012] upsert failed: boom", wrapped.Error())
}

func TestWithDetail_ReturnsCopy(t *testing.T) {
	base := errors.New(errors.CodeNotFound, "missing")
	detailed := base.WithDetail("id=1")

	assert.Empty(t, base.Detail)
	assert.Equal(t, "id=1", detailed.Detail)

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(fmt.Errorf("x")))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "nothing"))
}

func TestWrap_PreservesCodeWhenUnknown(t *testing.T) {
	inner := errors.New(errors.ErrCodeLayoutFailed, "layout timed out")
	outer := errors.Wrap(inner, errors.CodeUnknown, "graph build failed")

	assert.Equal(t, errors.ErrCodeLayoutFailed, outer.Code)
	assert.Same(t, inner, stderrors.Unwrap(outer))
}

func TestIsCode_WalksChain(t *testing.T) {
	root := errors.New(errors.ErrCodeJudgmentNotFound, "not found")
	mid := fmt.Errorf("lookup: %w", root)
	top := errors.Wrap(mid, errors.ErrCodeDatabaseError, "query failed")

	assert.True(t, errors.IsCode(top, errors.ErrCodeDatabaseError))
	assert.True(t, errors.IsCode(top, errors.ErrCodeJudgmentNotFound))
	assert.False(t, errors.IsCode(top, errors.ErrCodeNoInput))
	assert.False(t, errors.IsCode(nil, errors.CodeInternal))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeJudgmentNotFound, "x")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(fmt.Errorf("plain")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(fmt.Errorf("plain")))
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(errors.Validation("bad")))
	assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(fmt.Errorf("ctx: %w", errors.InvalidParam("bad"))))
}

func TestIs_MatchesSentinelAfterWithDetail(t *testing.T) {
	sentinel := errors.New(errors.ErrCodeNoInput, "no input documents")
	derived := sentinel.WithDetail("batch=7")

	assert.True(t, errors.Is(derived, sentinel))
	assert.True(t, stderrors.Is(fmt.Errorf("run: %w", derived), sentinel))
	assert.False(t, errors.Is(errors.New(errors.ErrCodeNoInput, "other message"), sentinel))
	assert.False(t, errors.Is(errors.Internal("no input documents"), sentinel))
}

func TestAs_ExtractsAppError(t *testing.T) {
	err := fmt.Errorf("outer: %w", errors.New(errors.ErrCodeGraphEmpty, "empty"))

	var ae *errors.AppError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, errors.ErrCodeGraphEmpty, ae.Code)
}
