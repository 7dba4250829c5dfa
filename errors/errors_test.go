package errors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	liberr "github.com/nabbar/famd/errors"
)

func TestWrapChain(t *testing.T) {
	base := liberr.New(liberr.ProtocolError, "malformed packet", nil)
	wrapped := liberr.New(liberr.ConnectError, "connection closed", base)

	assert.True(t, wrapped.IsCode(liberr.ConnectError))
	assert.True(t, wrapped.HasCode(liberr.ProtocolError))
	assert.False(t, wrapped.IsCode(liberr.ProtocolError))
	assert.Equal(t, "connection closed: malformed packet", wrapped.Error())
}

func TestIsSentinel(t *testing.T) {
	err := liberr.Wrap(liberr.AuthError, liberr.ErrAuth)
	assert.True(t, liberr.Is(err, liberr.ErrAuth))
	assert.True(t, liberr.IsCode(err, liberr.AuthError))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "bad filename", liberr.FilenameError.String())
	assert.Equal(t, "unknown error", liberr.CodeError(999).String())
}
