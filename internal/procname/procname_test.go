package procname_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nabbar/famd/internal/procname"
)

func TestLookupSelfReturnsNonEmpty(t *testing.T) {
	name := procname.Lookup(os.Getpid())
	assert.NotEmpty(t, name)
}

func TestLookupUnknownPidFallsBack(t *testing.T) {
	name := procname.Lookup(-1)
	assert.Equal(t, "unknown", name)
}
