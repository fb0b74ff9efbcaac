package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/paygate/types"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"connection refused", errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"), types.ErrChainUnavailable},
		{"unknown host", errors.New("dial tcp: lookup rpc.invalid: no such host"), types.ErrChainUnavailable},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), types.ErrChainUnavailable},
		{"node rejection", errors.New("nonce too low"), types.ErrRPC},
		{"execution revert", errors.New("execution reverted"), types.ErrRPC},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify("test op", tc.err)
			assert.Equal(t, tc.want, got.Code)
			assert.Contains(t, got.Message, "test op")
		})
	}
}

func TestConfirmationTimeoutMentionsSpendHazard(t *testing.T) {
	err := confirmationTimeout("0xabc", 2*time.Minute)
	assert.Equal(t, types.ErrConfirmationTimeout, err.Code)
	assert.Contains(t, err.Message, "0xabc")
	assert.Contains(t, err.Message, "funds may still be spent")
}

func TestBroadcast_RejectsGarbageBytes(t *testing.T) {
	// decode happens before any network call, so a zero client suffices
	c := &EthClient{}

	_, err := c.Broadcast(context.Background(), []byte("not a transaction"))
	require.Error(t, err)
	assert.Equal(t, types.ErrRPC, types.ErrorCode(err))
}
