package credentials

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealUnseal(t *testing.T) {
	s := NewSealer([]byte("test-secret"), time.Minute)

	token, err := s.Seal("exec-1", map[string]any{"apiKey": "sk-live-123"})
	require.NoError(t, err)

	var bag map[string]any
	execID, err := s.Unseal(token, &bag)
	require.NoError(t, err)
	assert.Equal(t, "exec-1", execID)
	assert.Equal(t, "sk-live-123", bag["apiKey"])
}

func TestUnseal_WrongSecretFails(t *testing.T) {
	s1 := NewSealer([]byte("secret-a"), time.Minute)
	s2 := NewSealer([]byte("secret-b"), time.Minute)

	token, err := s1.Seal("exec-1", map[string]any{"k": "v"})
	require.NoError(t, err)

	_, err = s2.Unseal(token, nil)
	assert.Error(t, err)
}

func TestUnseal_ExpiredFails(t *testing.T) {
	s := NewSealer([]byte("secret"), time.Nanosecond)
	token, err := s.Seal("exec-1", map[string]any{})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	_, err = s.Unseal(token, nil)
	assert.Error(t, err)
}
