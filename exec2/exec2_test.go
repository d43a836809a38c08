package exec2

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunRC_CleanExit(t *testing.T) {
	e := New(2)
	defer e.Stop()

	res := <-e.RunRC(context.Background(), time.Second, "/bin/true")
	require.NoError(t, res.Err)
	require.Equal(t, 0, res.RC)
}

func TestRunRC_NonZeroExit(t *testing.T) {
	e := New(2)
	defer e.Stop()

	res := <-e.RunRC(context.Background(), time.Second, "/bin/false")
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.RC)
}

func TestRunRC_Timeout(t *testing.T) {
	e := New(2)
	defer e.Stop()

	res := <-e.RunRC(context.Background(), 50*time.Millisecond, "/bin/sleep", "5")
	require.NoError(t, res.Err)
	require.Equal(t, -1, res.RC)
}

func TestCapture_MergesStdoutAndStderr(t *testing.T) {
	e := New(2)
	defer e.Stop()

	res := <-e.Capture(context.Background(), time.Second, "/bin/sh", "-c", "echo out; echo err 1>&2")
	require.Equal(t, 0, res.RC)
	require.Contains(t, res.Out, "out")
	require.Contains(t, res.Out, "err")
}

func TestCapture_TimeoutProducesSyntheticMessage(t *testing.T) {
	e := New(2)
	defer e.Stop()

	res := <-e.Capture(context.Background(), 50*time.Millisecond, "/bin/sleep", "5")
	require.Equal(t, -1, res.RC)
	require.Contains(t, res.Out, "TIMEOUT after")
}

func TestRunRC_IsNonBlockingOnRequestPath(t *testing.T) {
	e := New(1)
	defer e.Stop()

	ch := e.RunRC(context.Background(), time.Second, "/bin/sleep", "0.2")
	select {
	case <-ch:
		t.Fatal("expected RunRC to return a channel before the subprocess completes")
	default:
	}
	<-ch
}
