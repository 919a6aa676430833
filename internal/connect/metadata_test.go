package connect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetNameAndType_Form(t *testing.T) {
	fake := newFakeConnect(t)
	srv := fake.start()
	sess := authenticated(t, fake, srv, Options{})

	name, err := sess.SetName(context.Background(), 1001, "Évening Run")
	require.NoError(t, err)
	assert.Equal(t, "Évening Run", name)
	assert.Equal(t, "Évening Run", fake.names[1001])

	key, err := sess.SetType(context.Background(), 1001, "running")
	require.NoError(t, err)
	assert.Equal(t, "running", key)
	assert.Equal(t, "running", fake.types[1001])
}

func TestSetName_EchoMismatchIsReturned(t *testing.T) {
	fake := newFakeConnect(t)
	fake.echoName = "Untitled"
	srv := fake.start()
	sess := authenticated(t, fake, srv, Options{})

	name, err := sess.SetName(context.Background(), 1001, "Tempo")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", name)
}

func TestSetNameAndType_JSON(t *testing.T) {
	fake := newFakeConnect(t)
	srv := fake.start()
	sess := authenticated(t, fake, srv, Options{MutationStyle: MutationJSON})

	name, err := sess.SetName(context.Background(), 42, "Hill repeats")
	require.NoError(t, err)
	assert.Equal(t, "Hill repeats", name)

	key, err := sess.SetType(context.Background(), 42, "trail_running")
	require.NoError(t, err)
	assert.Equal(t, "trail_running", key)
}
