package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data, "ignored in json mode\n")
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success(map[string]int{"raised": 2}, "Sweep complete: 2 exception(s) raised.\n")
	require.NoError(t, err)
	assert.Equal(t, "Sweep complete: 2 exception(s) raised.\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("INVALID_STATE", "cannot resolve exception in status \"dismissed\"", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_STATE", resp.Error.Code)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error("NOT_FOUND", "record does not exist", nil)
	require.NoError(t, err)
	assert.Equal(t, "Error [NOT_FOUND]: record does not exist\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %s", "message")
	assert.Empty(t, errOut.String())

	verbose := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut, Verbose: true}
	verbose.VerboseLog("opened %s", "test.db")
	assert.Equal(t, "opened test.db\n", errOut.String())
	assert.Empty(t, out.String(), "verbose output must not pollute stdout")
}

func TestExitError(t *testing.T) {
	plain := NewExitError(ExitFailure, "conflict")
	assert.Equal(t, "conflict", plain.Error())
	assert.Equal(t, ExitFailure, GetExitCode(plain))

	inner := errors.New("disk full")
	wrapped := WrapExitError(ExitCommandError, "open store", inner)
	assert.Equal(t, "open store: disk full", wrapped.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, inner)

	// Wrapping preserves the code through further decoration.
	decorated := fmt.Errorf("context: %w", wrapped)
	assert.Equal(t, ExitCommandError, GetExitCode(decorated))

	// Non-exit errors default to failure.
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("anything")))
}
