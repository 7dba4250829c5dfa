package pollonly_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nabbar/famd/kernel/pollonly"
)

func TestBackendNeverEmits(t *testing.T) {
	b := pollonly.New()
	defer b.Close()

	assert.NoError(t, b.AddWatch("/tmp"))
	assert.NoError(t, b.RemoveWatch("/tmp"))

	select {
	case <-b.Events():
		t.Fatal("pollonly backend must never emit events")
	default:
	}
}

func TestBackendName(t *testing.T) {
	assert.Equal(t, "pollonly", pollonly.New().Name())
}
