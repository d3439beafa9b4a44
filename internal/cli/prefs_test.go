package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/idle/internal/prefs"
)

func TestTheme_LockedUntilBought(t *testing.T) {
	db := tempDB(t)

	out, _, err := execute(t, db, "--format", "json", "theme", "dark")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, CodeLocked, decodeResponse(t, out).Error.Code)

	_, _, err = execute(t, db, "click", "50")
	require.NoError(t, err)
	_, _, err = execute(t, db, "buy", "dark_mode")
	require.NoError(t, err)

	out, _, err = execute(t, db, "theme")
	require.NoError(t, err)
	assert.Contains(t, out, "Theme: dark", "buying dark mode switches to it")

	out, _, err = execute(t, db, "--format", "json", "theme", "--toggle")
	require.NoError(t, err)
	var th ThemeOutput
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &th))
	assert.Equal(t, prefs.ThemeLight, th.Theme)
}

func TestTheme_Unknown(t *testing.T) {
	out, _, err := execute(t, tempDB(t), "theme", "sepia")
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+CodeUnknown+"]")
}

func TestMusic_VolumeAndLock(t *testing.T) {
	db := tempDB(t)

	out, _, err := execute(t, db, "--format", "json", "music", "150")
	require.NoError(t, err)
	var m MusicOutput
	require.NoError(t, json.Unmarshal(decodeResponse(t, out).Data, &m))
	assert.Equal(t, prefs.MaxVolume, m.Volume)
	assert.False(t, m.Playing)

	_, _, err = execute(t, db, "music", "--on")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = execute(t, db, "music", "--on", "--off")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, db, "music", "loud")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err = execute(t, db, "music")
	require.NoError(t, err)
	assert.Contains(t, out, "Music: off, volume 100")
}

func TestReset_RequiresConfirmation(t *testing.T) {
	db := tempDB(t)
	_, _, err := execute(t, db, "click", "60")
	require.NoError(t, err)
	_, _, err = execute(t, db, "buy", "dark_mode")
	require.NoError(t, err)

	_, _, err = execute(t, db, "reset")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err := execute(t, db, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "All game progress has been reset")

	out, _, err = execute(t, db, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance:        0")
	assert.Contains(t, out, "Unlocks:        none")
	assert.Contains(t, out, "Theme:          light")
	assert.Contains(t, out, "Achievements:   0/")
}
