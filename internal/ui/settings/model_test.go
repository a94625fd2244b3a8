package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ghnotify/internal/model"
)

func baseConfig(t *testing.T) model.AppConfig {
	t.Helper()
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	return *cfg
}

func TestApply(t *testing.T) {
	m := New("unused", baseConfig(t), 80, 24)
	m.fb.interval = " 120 "
	m.fb.host = "ghe.corp.example"
	m.fb.reasons = []string{model.ReasonMention}

	got := m.Apply()
	assert.Equal(t, 120, got.Notify.PollIntervalSec)
	assert.Equal(t, "ghe.corp.example", got.GitHub.Host)
	assert.Equal(t, []string{model.ReasonMention}, got.Notify.ImportantReasons)
}

func TestApply_KeepsValuesOnBadInput(t *testing.T) {
	m := New("unused", baseConfig(t), 80, 24)
	m.fb.interval = "soon"
	m.fb.host = "  "

	got := m.Apply()
	assert.Equal(t, 30, got.Notify.PollIntervalSec)
	assert.Equal(t, "github.com", got.GitHub.Host)
}

func TestSave_WritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := baseConfig(t)
	cfg.Notify.PollIntervalSec = 90

	msg := save(path, cfg)().(SavedMsg)
	require.NoError(t, msg.Err)

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90, loaded.Notify.PollIntervalSec)
}

func TestReasonOptions_KeepsCustom(t *testing.T) {
	opts := reasonOptions([]string{model.ReasonMention, "security_alert"})
	assert.Contains(t, opts, "security_alert")
	assert.Len(t, opts, len(knownReasons)+1)
}

func TestValidateInterval(t *testing.T) {
	assert.NoError(t, ValidateInterval("30"))
	assert.Error(t, ValidateInterval("0"))
	assert.Error(t, ValidateInterval("abc"))
}
