package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppError_Defaults(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		status    int
		retriable bool
	}{
		{ErrCodeProviderUnavailable, http.StatusServiceUnavailable, false},
		{ErrCodeUserRejected, http.StatusForbidden, true},
		{ErrCodeExecutionFailed, http.StatusUnprocessableEntity, true},
		{ErrCodeValidationFailed, http.StatusBadRequest, false},
		{ErrCodeInternalError, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := NewAppError(tt.code, "boom", nil)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Equal(t, tt.retriable, err.Retriable)
		})
	}
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("connect: %w", UserRejected("declined account access"))

	assert.True(t, errors.Is(err, ErrUserRejected))
	assert.False(t, errors.Is(err, ErrExecutionFailed))
	assert.Equal(t, ErrCodeUserRejected, CodeOf(err))
}

func TestAppError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ExecutionFailed("call contract", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "EXECUTION_FAILED")
	assert.True(t, IsRetriable(err))
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrCodeInternalError, CodeOf(errors.New("plain")))
	assert.False(t, IsRetriable(errors.New("plain")))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"wallet missing", errors.New("MetaMask is not installed"), ErrCodeProviderUnavailable},
		{"declined", errors.New("User rejected the request."), ErrCodeUserRejected},
		{"no funds", errors.New("insufficient funds for transfer"), ErrCodeExecutionFailed},
		{"unknown", errors.New("execution reverted"), ErrCodeExecutionFailed},
		{"already typed", ValidationFailed("bad receiver"), ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.err, "submit")
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Code)
		})
	}

	assert.Nil(t, Parse(nil, "submit"))
}

func TestDisplay(t *testing.T) {
	d := Display(errors.New("insufficient funds for gas * price + value"))
	assert.Equal(t, "Insufficient Funds", d.Title)

	d = Display(ProviderUnavailable("no wallet configured"))
	assert.Equal(t, ErrCodeProviderUnavailable, d.Code)
	assert.Equal(t, "Wallet Not Found", d.Title)

	d = Display(ValidationFailed("receiver is not a valid address"))
	assert.Equal(t, "Invalid Input", d.Title)
	assert.Equal(t, "receiver is not a valid address", d.Message)

	long := errors.New(strings.Repeat("x", 150))
	d = Display(long)
	assert.Equal(t, "Unknown Error", d.Title)
	assert.Len(t, d.Message, maxDisplayMessage+3)
	assert.True(t, strings.HasSuffix(d.Message, "..."))

	// A multi-byte rune straddling the limit is dropped whole.
	d = Display(errors.New(strings.Repeat("a", 99) + "ééé"))
	assert.True(t, utf8.ValidString(d.Message))
	assert.Equal(t, strings.Repeat("a", 99)+"...", d.Message)
}
