package errors_test

import (
	"fmt"
	"testing"

	stderrors "errors"

	"github.com/bitcoin-sv/axiomd/errors"
	"github.com/stretchr/testify/assert"
)

func TestNewFormatsMessageAndWrapsTrailingError(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := errors.New(errors.ERR_STORAGE_IO, "writing %s", "chain.dat", cause)

	assert.Equal(t, errors.ERR_STORAGE_IO, err.Code())
	assert.Equal(t, "writing chain.dat", err.Message())
	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesByCodeNotMessage(t *testing.T) {
	a := errors.New(errors.ERR_INVALID_NONCE, "expected 1 got 2")
	assert.True(t, errors.Is(a, errors.ErrInvalidNonce))
	assert.False(t, errors.Is(a, errors.ErrInvalidParent))
}

func TestAsExtractsConcreteType(t *testing.T) {
	var target *errors.Error
	err := fmt.Errorf("wrapped: %w", errors.ErrMempoolFull)
	assert.True(t, stderrors.As(err, &target))
	assert.Equal(t, errors.ERR_MEMPOOL_FULL, target.Code())
}

func TestJoinConcatenatesNonNilMessages(t *testing.T) {
	joined := errors.Join(nil, errors.ErrInvalidPoW, errors.ErrInvalidVDF)
	assert.Contains(t, joined.Error(), "block digest does not meet target")
	assert.Contains(t, joined.Error(), "invalid VDF proof")
}

func TestJoinOfAllNilIsNil(t *testing.T) {
	assert.Nil(t, errors.Join(nil, nil))
}

func TestErrCodeString(t *testing.T) {
	assert.Equal(t, "INVALID_NONCE", errors.ERR_INVALID_NONCE.String())
	assert.Equal(t, "UNKNOWN", errors.ERR(999).String())
}
