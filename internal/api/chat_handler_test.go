package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessin/internal/chat"
	"lessin/internal/database"
)

func TestChatMessages(t *testing.T) {
	env := newTestEnv(t)
	uid := env.signup(t, "mona")
	set := env.createStudySet(t, uid, "Chat")

	w := env.get("/chats/thread/" + idString(set.ID))
	require.Equal(t, http.StatusOK, w.Code)
	var thread database.ChatThread
	decode(t, w, &thread)
	tid := idString(thread.ID)

	invalid := env.postForm(http.MethodPost, "/chats/messages", url.Values{"thread_id": {tid}, "sender": {"robot"}, "content": {"x"}})
	assert.Equal(t, http.StatusBadRequest, invalid.Code)

	missing := env.postForm(http.MethodPost, "/chats/messages", url.Values{"thread_id": {"999"}, "sender": {"user"}, "content": {"x"}})
	assert.Equal(t, http.StatusNotFound, missing.Code)

	for _, m := range []struct{ sender, content string }{
		{"user", "What is a goroutine?"},
		{"assistant", "A lightweight thread."},
	} {
		w := env.postForm(http.MethodPost, "/chats/messages", url.Values{"thread_id": {tid}, "sender": {m.sender}, "content": {m.content}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = env.get("/chats/messages/" + tid)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []database.ChatMessage
	decode(t, w, &messages)
	require.Len(t, messages, 2)
	assert.Equal(t, chat.SenderUser, messages[0].Sender)
	assert.Equal(t, chat.SenderAssistant, messages[1].Sender)

	require.Len(t, env.publisher.payloads, 2)
	assert.Equal(t, []uint{thread.ID, thread.ID}, env.publisher.threads)
	var published database.ChatMessage
	require.NoError(t, json.Unmarshal(env.publisher.payloads[1], &published))
	assert.Equal(t, "A lightweight thread.", published.Content)

	empty := env.get("/chats/messages/999")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.JSONEq(t, "[]", empty.Body.String())
}
