package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/dto"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempConfigDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("AppData", dir)
}

func TestSessionRoundTrip(t *testing.T) {
	useTempConfigDir(t)

	s, err := loadSession()
	require.NoError(t, err)
	assert.Empty(t, s.Token)

	_, err = newClient("")
	assert.Error(t, err)

	require.NoError(t, saveSession(&session{Server: "http://parks.example", Token: "tok", UserID: 4, Name: "Wren"}))

	s, err = loadSession()
	require.NoError(t, err)
	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, "http://parks.example", resolveServer("", s))
	assert.Equal(t, "http://override", resolveServer("http://override", s))

	client, err := newClient("")
	require.NoError(t, err)
	assert.Equal(t, "tok", client.Token())
}

func TestResolveServerDefault(t *testing.T) {
	assert.Equal(t, defaultServer, resolveServer("", &session{}))
}

func TestParseTaskID(t *testing.T) {
	id, err := parseTaskID("12")
	require.NoError(t, err)
	assert.EqualValues(t, 12, id)

	for _, raw := range []string{"0", "-1", "abc"} {
		_, err := parseTaskID(raw)
		assert.Error(t, err, raw)
	}
}

func TestPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	printTasks(&buf, nil)
	assert.Equal(t, "No tasks.\n", buf.String())

	buf.Reset()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	raID := uint64(3)
	printTasks(&buf, []dto.TaskDTO{{
		ID:               7,
		Title:            "Mow oval",
		Status:           models.TaskStatusAssigned,
		Priority:         models.PriorityHigh,
		ScheduledDate:    &date,
		RiskAssessmentID: &raID,
	}})
	out := buf.String()
	assert.Contains(t, out, "Mow oval")
	assert.Contains(t, out, "2026-03-02")
	assert.Contains(t, out, "1 doc(s)")
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	got, err := prompt(bytes.NewBufferString("secret\n"), &out, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
	assert.Equal(t, "Password: ", out.String())
}
