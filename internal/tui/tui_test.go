package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_Done(t *testing.T) {
	m := New(context.Background(), "Thinking...", func(context.Context) (string, error) {
		return "answer", nil
	})
	assert.True(t, strings.HasSuffix(m.View(), "Thinking..."))

	msg := m.run()
	updated, cmd := m.Update(msg)
	require.NotNil(t, cmd)

	final := updated.(Model)
	assert.Empty(t, final.View())
	text, err := final.Result()
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
}

func TestModel_CtrlCCancelsWork(t *testing.T) {
	m := New(context.Background(), "Thinking...", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, err := updated.(Model).Result()
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)
}

func TestRun_NoAnimation(t *testing.T) {
	var out bytes.Buffer
	text, err := Run(context.Background(), &out, "Thinking...", false, func(context.Context) (string, error) {
		return "", errors.New("offline")
	})
	assert.Empty(t, text)
	assert.EqualError(t, err, "offline")
	assert.Equal(t, "Thinking...\n", out.String())
}
