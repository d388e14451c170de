package gostatement

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	testcases := []struct {
		err  *StatementError
		want string
	}{
		{
			err:  &StatementError{Number: 1, Message: "test message"},
			want: "000001: test message",
		},
		{
			err:  &StatementError{Number: ErrCodeInvalidState, Message: "test message: %v, %v", MessageArgs: []interface{}{"C1", "C2"}},
			want: "270001: test message: C1, C2",
		},
		{
			err:  &StatementError{Number: ErrCodeStatementFailed, StatementID: "st-1", Message: "%v", MessageArgs: []interface{}{"boom"}, ServerErrorCode: "BAD_REQUEST"},
			want: "272001: st-1: boom (BAD_REQUEST)",
		},
	}
	for _, tc := range testcases {
		assertEqualE(t, tc.err.Error(), tc.want)
	}
}

func TestErrAbortedUnwraps(t *testing.T) {
	err := errAborted("st-1", context.DeadlineExceeded)
	assertErrIsF(t, err, context.DeadlineExceeded)
	assertTrueE(t, IsCancellation(err))
	assertTrueE(t, IsCancellation(fmt.Errorf("wrapped: %w", err)))
}

func TestIsCancellation(t *testing.T) {
	assertTrueE(t, IsCancellation(&StatementError{Number: ErrCodeStatementCanceled}))
	assertFalseE(t, IsCancellation(&StatementError{Number: ErrCodeStatementFailed}))
	assertFalseE(t, IsCancellation(context.Canceled), "bare context errors are not StatementErrors")
	assertFalseE(t, IsCancellation(nil))
}

func TestAbortOr(t *testing.T) {
	other := errors.New("connection reset")
	assertTrueE(t, abortOr(context.Background(), "st-1", other) == other)
	assertNilE(t, abortOr(context.Background(), "st-1", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := abortOr(ctx, "st-1", other)
	se := assertStatementErrorF(t, err, ErrCodeAborted)
	assertEqualE(t, se.StatementID, "st-1")
	assertErrIsF(t, err, context.Canceled)

	err = abortOr(ctx, "st-1", nil)
	assertStatementErrorF(t, err, ErrCodeAborted)

	canceled := &StatementError{Number: ErrCodeStatementCanceled}
	assertTrueE(t, abortOr(ctx, "st-1", canceled) == error(canceled), "cancellations are kept")
}

func TestErrMalformedKeepsCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := errMalformed("st-1", cause)
	assertErrIsF(t, err, cause)
	assertStringContainsE(t, err.Error(), "malformed response: unexpected EOF")
}
