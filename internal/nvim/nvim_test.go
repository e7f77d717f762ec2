package nvim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	t.Setenv("NVIM_LISTEN_ADDRESS", "")
	t.Setenv("NVIM", "")
	assert.Empty(t, Address(""))

	t.Setenv("NVIM", "/tmp/nvim.term")
	assert.Equal(t, "/tmp/nvim.term", Address(""))

	t.Setenv("NVIM_LISTEN_ADDRESS", "/tmp/nvim.sock")
	assert.Equal(t, "/tmp/nvim.sock", Address(""))
	assert.Equal(t, "127.0.0.1:6666", Address("127.0.0.1:6666"))
}

func TestDisabledNotifier(t *testing.T) {
	n, err := New("", nil)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.NoError(t, n.Reload([]string{"main.go"}))
	n.Close()
}

func TestChecktimeCommand(t *testing.T) {
	assert.Equal(t, "silent! checktime /src/main.go", checktimeCommand("/src/main.go"))
	assert.Equal(t, `silent! checktime /my\ project/50\%\ off\#1.go`, checktimeCommand("/my project/50% off#1.go"))
}
