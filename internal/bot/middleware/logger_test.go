package middleware

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMessageTruncatesAndSkipsNil(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	old := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(old)

	// Неполные сообщения молча пропускаются, без паники.
	LogMessage(nil)
	LogMessage(&tgbotapi.Message{})
	assert.Empty(t, hook.Entries)

	// Кириллица: обрезка идёт по рунам, не по байтам.
	long := strings.Repeat("п", 80)
	LogMessage(&tgbotapi.Message{
		From: &tgbotapi.User{ID: 42, UserName: "student"},
		Chat: &tgbotapi.Chat{ID: 42},
		Text: long,
	})

	require.NotEmpty(t, hook.Entries)
	entry := hook.LastEntry()
	assert.Equal(t, int64(42), entry.Data["user_id"])
	logged, ok := entry.Data["text"].(string)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("п", logTextLimit)+"...", logged)
}

func TestLogCallbackRecordsToken(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	old := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(old)

	LogCallback(nil)
	assert.Empty(t, hook.Entries)

	LogCallback(&tgbotapi.CallbackQuery{
		From: &tgbotapi.User{ID: 42, UserName: "student"},
		Data: "approve#7",
	})

	require.NotEmpty(t, hook.Entries)
	entry := hook.LastEntry()
	assert.Equal(t, int64(42), entry.Data["user_id"])
	assert.Equal(t, "approve#7", entry.Data["token"])
}
