package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("error: malformed header from server")))
	assert.True(t, IsTransient(errors.New("read: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("rpc error: transport is closing")))
	assert.True(t, IsTransient(errors.New("Malformed Header: upper case")))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New(`namespaces "missing" not found`)))
	assert.False(t, IsTransient(errors.New("forbidden: User cannot list pods")))
}

type fakeTimeout struct{ isTimeout bool }

func (f *fakeTimeout) Error() string { return "operation failed" }
func (f *fakeTimeout) Timeout() bool { return f.isTimeout }

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("running kubectl: %w", context.DeadlineExceeded)))
	assert.True(t, IsTimeout(&fakeTimeout{isTimeout: true}))
	assert.True(t, IsTimeout(errors.New("request timed out")))

	assert.False(t, IsTimeout(nil))
	assert.False(t, IsTimeout(&fakeTimeout{isTimeout: false}))
	assert.False(t, IsTimeout(errors.New("permission denied")))
}

func TestSummarizeConnectionError(t *testing.T) {
	stderr := "I0101 10:00:00 some noise line\n" +
		"Unable to connect to the server: dial tcp 10.0.0.1:6443: i/o timeout\n" +
		"error: exit status 1"
	got := SummarizeConnectionError(stderr)
	assert.Contains(t, got, "Unable to connect to the server")

	// No marker line: first non-empty line wins.
	assert.Equal(t, "something odd happened", SummarizeConnectionError("\n\nsomething odd happened\nmore detail"))

	assert.Equal(t, "cluster request failed", SummarizeConnectionError("   \n \n"))
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError("Unable to connect to the server"))
	assert.True(t, IsConnectionError(`Error from server (Forbidden): pods is forbidden`))
	assert.True(t, IsConnectionError("x509: certificate signed by unknown authority"))
	assert.False(t, IsConnectionError(`error: namespace "foo" not found`))
}
