package utils_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/secaudit/internal/utils"
)

func TestFlushingWriterFlushesBufferedOutput(testInstance *testing.T) {
	destination := &bytes.Buffer{}
	bufferedWriter := bufio.NewWriterSize(destination, 4096)

	flushingWriter := utils.NewFlushingWriter(bufferedWriter)
	written, writeError := flushingWriter.Write([]byte("[2026-10-18T09:00:00Z] cycle 1: HIGH risk detected\n"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, 51, written)
	require.Equal(testInstance, "[2026-10-18T09:00:00Z] cycle 1: HIGH risk detected\n", destination.String())

	require.Same(testInstance, flushingWriter, utils.NewFlushingWriter(flushingWriter))
	require.Nil(testInstance, utils.NewFlushingWriter(nil))
}
