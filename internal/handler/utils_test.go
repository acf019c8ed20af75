package handler

import (
	"context"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-rum-bridge/internal/config"
)

func TestCommandArg(t *testing.T) {
	assert.Equal(t, "alice", commandArg("/profile alice", "/profile"))
	assert.Equal(t, "alice", commandArg("/profile 'alice'", "/profile"))
	assert.Equal(t, "alice", commandArg("/profile \"alice\"\n", "/profile"))
	assert.Equal(t, "", commandArg("/profile", "/profile"))
}

func TestMessageText(t *testing.T) {
	assert.Equal(t, "hi", messageText(telego.Message{Text: "hi"}))
	assert.Equal(t, "caption", messageText(telego.Message{Caption: "caption"}))
	assert.Equal(t, "", messageText(telego.Message{}))
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Alice", fullName(&telego.User{FirstName: "Alice"}))
	assert.Equal(t, "Alice Smith", fullName(&telego.User{FirstName: "Alice", LastName: "Smith"}))
}

func TestPhotoList(t *testing.T) {
	assert.Nil(t, photoList(nil))
	assert.Equal(t, [][]byte{{0x01}}, photoList([]byte{0x01}))
}

func TestIsChannelForward(t *testing.T) {
	globalConfig = &config.Config{Channel: config.ChannelConfig{ID: -1001}}

	assert.True(t, isChannelForward(telego.Message{IsAutomaticForward: true}))
	assert.True(t, isChannelForward(telego.Message{SenderChat: &telego.Chat{ID: -1001}}))
	assert.False(t, isChannelForward(telego.Message{SenderChat: &telego.Chat{ID: -2002}}))
	assert.False(t, isChannelForward(telego.Message{}))
}

func TestForwardedChannelMessageID(t *testing.T) {
	assert.Nil(t, forwardedChannelMessageID(nil))
	assert.Nil(t, forwardedChannelMessageID(&telego.Message{}))

	msg := &telego.Message{
		ForwardOrigin: &telego.MessageOriginChannel{MessageID: 42},
	}
	id := forwardedChannelMessageID(msg)
	require.NotNil(t, id)
	assert.Equal(t, 42, *id)
}

func TestChatTypePredicate(t *testing.T) {
	pred := chatTypeIs("private")
	ctx := context.Background()

	assert.True(t, pred(ctx, telego.Update{Message: &telego.Message{Chat: telego.Chat{Type: "private"}}}))
	assert.False(t, pred(ctx, telego.Update{Message: &telego.Message{Chat: telego.Chat{Type: "supergroup"}}}))
	assert.False(t, pred(ctx, telego.Update{}))
}

func TestNotCommandPredicate(t *testing.T) {
	pred := notCommand()
	ctx := context.Background()

	assert.True(t, pred(ctx, telego.Update{Message: &telego.Message{Text: "hello"}}))
	assert.False(t, pred(ctx, telego.Update{Message: &telego.Message{Text: "/start"}}))
}
