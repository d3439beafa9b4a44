package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/idle/internal/catalog"
	"github.com/roach88/idle/internal/lore"
	"github.com/roach88/idle/internal/notify"
	"github.com/roach88/idle/internal/prefs"
	"github.com/roach88/idle/internal/progress"
	"github.com/roach88/idle/internal/shop"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(CodeStorage, "database locked", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeStorage, resp.Error.Code)
	assert.Equal(t, "database locked", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error(CodeLocked, "item locked", map[string]int{"requires_level": 10})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E104]")
	assert.Contains(t, buf.String(), "item locked")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error(CodeLocked, "item locked", map[string]int{"requires_level": 10})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("opening %s", "idle.db")

			assert.Empty(t, buf.String(), "diagnostics never corrupt JSON output")
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "opening idle.db")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&progress.InsufficientFundsError{Cost: 20, Shortage: 20}, CodeInsufficientFunds},
		{fmt.Errorf("commit purchase %q: %w", "bgm", &progress.InsufficientFundsError{Cost: 250}), CodeInsufficientFunds},
		{shop.ErrAlreadyOwned, CodeAlreadyOwned},
		{lore.ErrAlreadyUnlocked, CodeAlreadyOwned},
		{shop.ErrMaxLevel, CodeMaxLevel},
		{fmt.Errorf("%w: theme dark", prefs.ErrLocked), CodeLocked},
		{ErrNoAgents, CodeLocked},
		{shop.ErrUnknownItem, CodeUnknown},
		{lore.ErrUnknownLore, CodeUnknown},
		{prefs.ErrUnknownTheme, CodeUnknown},
		{lore.ErrPurchaseInProgress, CodePurchaseInProgress},
		{&catalog.Error{Field: "items", Message: "duplicate id"}, CodeCatalog},
		{errors.New("boom"), CodeCommand},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestRefused_ExitCodes(t *testing.T) {
	formatter := &OutputFormatter{Format: "text", Writer: &bytes.Buffer{}}

	err := formatter.Refused(shop.ErrMaxLevel, nil)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, shop.ErrMaxLevel)

	err = formatter.Refused(errors.New("disk on fire"), nil)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Silent)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", WrapExitError(ExitCommandError, "x", errors.New("y")))))
}

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		event notify.Event
		want  string
	}{
		{notify.Event{Kind: notify.KindAchievementEarned, Title: "Series A"}, "★ Achievement unlocked: Series A"},
		{notify.Event{Kind: notify.KindInsufficientFunds, ID: "bgm", Amount: 12}, "✗ Not enough clicks for bgm (12 short)"},
		{notify.Event{Kind: notify.KindPurchased, Title: "Agentic Clicker", Amount: 28, Level: 2}, "✓ Bought Agentic Clicker level 2 for 28"},
		{notify.Event{Kind: notify.KindPurchased, Title: "Dark Mode", Amount: 50}, "✓ Bought Dark Mode for 50"},
		{notify.Event{Kind: notify.KindLoreUnlocked, Title: "The MVC Revelation", Amount: 5}, `✓ Unlocked lore "The MVC Revelation" for 5`},
		{notify.Event{Kind: notify.KindReset}, "All game progress has been reset"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeEvent(tt.event))
	}
}
