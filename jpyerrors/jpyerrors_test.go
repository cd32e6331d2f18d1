package jpyerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := &ConfigError{Msg: "bad transport", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bad transport")
}

func TestSchemaErrorWithoutCause(t *testing.T) {
	err := &SchemaError{MsgType: "execute_reply", Msg: "missing field"}
	assert.Nil(t, err.Unwrap())
	assert.Contains(t, err.Error(), "execute_reply")
	assert.Contains(t, err.Error(), "missing field")
}

func TestCancelledMessage(t *testing.T) {
	err := &Cancelled{Msg: "context done"}
	assert.Contains(t, err.Error(), "context done")
}
