package apperr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := New(IO, "write", "/tmp/a.mp4", os.ErrPermission)
	wrapped := fmt.Errorf("pass 2: %w", err)

	assert.True(t, errors.Is(wrapped, ErrIO))
	assert.False(t, errors.Is(wrapped, ErrDeletion))
	assert.True(t, errors.Is(wrapped, os.ErrPermission))
	assert.Equal(t, IO, KindOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := New(Deletion, "remove", "/data/b.mkv", errors.New("busy"))
	assert.Equal(t, "DeletionFailure: remove /data/b.mkv: busy", err.Error())

	cfg := Configf("unknown method %q", "gutmann")
	assert.Equal(t, `ConfigurationError: unknown method "gutmann"`, cfg.Error())
	assert.True(t, errors.Is(cfg, ErrConfiguration))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
