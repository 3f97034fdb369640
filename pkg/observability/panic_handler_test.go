package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "test operation")
		panic("boom")
	}()

	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), "test operation")
}

func TestRecoverPanicWithCallback(t *testing.T) {
	t.Run("callback receives the panic value", func(t *testing.T) {
		var got interface{}
		func() {
			defer RecoverPanicWithCallback(NewLogger(InfoLevel, &bytes.Buffer{}), "handler", func(r interface{}) {
				got = r
			})
			panic("kaboom")
		}()
		assert.Equal(t, "kaboom", got)
	})

	t.Run("callback skipped without panic", func(t *testing.T) {
		called := false
		func() {
			defer RecoverPanicWithCallback(NewLogger(InfoLevel, &bytes.Buffer{}), "handler", func(interface{}) {
				called = true
			})
		}()
		assert.False(t, called)
	})
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))
	assert.EqualError(t, MustRecover("bad"), "panic: bad")
}
