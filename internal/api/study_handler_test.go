package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessin/internal/database"
)

func idString(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func (e *testEnv) createStudySet(t *testing.T, userID uint, title string) database.StudySet {
	t.Helper()
	w := e.postForm(http.MethodPost, "/studysets", url.Values{"user_id": {idString(userID)}, "title": {title}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var set database.StudySet
	decode(t, w, &set)
	return set
}

func TestStudySetCRUD(t *testing.T) {
	env := newTestEnv(t)
	uid := env.signup(t, "hana")
	set := env.createStudySet(t, uid, "Go")
	assert.Nil(t, set.Description)

	missingUser := env.postForm(http.MethodPost, "/studysets", url.Values{"user_id": {"999"}, "title": {"x"}})
	assert.Equal(t, http.StatusNotFound, missingUser.Code)

	path := "/studysets/" + idString(set.ID)
	w := env.postForm(http.MethodPut, path, url.Values{"title": {"Go basics"}, "description": {"week 1"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.get(path)
	require.Equal(t, http.StatusOK, w.Code)
	var got database.StudySet
	decode(t, w, &got)
	assert.Equal(t, "Go basics", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, "week 1", *got.Description)

	w = env.get("/studysets?user_id=" + idString(uid))
	require.Equal(t, http.StatusOK, w.Code)
	var list []database.StudySet
	decode(t, w, &list)
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusBadRequest, env.get("/studysets").Code)
	assert.Equal(t, http.StatusNotFound, env.get("/studysets/999").Code)
}

func TestDeleteStudySetCascades(t *testing.T) {
	env := newTestEnv(t)
	uid := env.signup(t, "ivan")
	set := env.createStudySet(t, uid, "Cascade")
	setID := idString(set.ID)

	w := env.upload("/studyfiles", map[string]string{"study_set_id": setID}, "notes.txt", []byte("hello notes"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var file database.StudyFile
	decode(t, w, &file)
	assert.True(t, strings.HasPrefix(file.FileURL, "http://files.test/uploads/"))

	w = env.get("/chats/thread/" + setID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var thread database.ChatThread
	decode(t, w, &thread)

	w = env.postForm(http.MethodPost, "/chats/messages", url.Values{
		"thread_id": {idString(thread.ID)},
		"sender":    {"user"},
		"content":   {"hi"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var storedFile database.StudyFile
	require.NoError(t, env.db.First(&storedFile, file.ID).Error)
	key := storedFile.StorageKey
	require.NotEmpty(t, key)

	require.Equal(t, http.StatusOK, env.delete("/studysets/"+setID).Code)

	assert.Equal(t, http.StatusNotFound, env.get("/studysets/"+setID).Code)
	assert.Equal(t, http.StatusNotFound, env.get("/chats/thread/"+setID).Code)
	assert.Equal(t, http.StatusNotFound, env.delete("/studysets/"+setID).Code)

	for _, model := range []any{&database.StudyFile{}, &database.ChatThread{}, &database.ChatMessage{}} {
		var count int64
		require.NoError(t, env.db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}

	_, _, err := env.store.Open(context.Background(), key)
	assert.Error(t, err, "stored file should be purged")
}

func TestStudyFileUploadListDelete(t *testing.T) {
	env := newTestEnv(t)
	uid := env.signup(t, "jade")
	set := env.createStudySet(t, uid, "Files")
	setID := idString(set.ID)

	missingSet := env.upload("/studyfiles", map[string]string{"study_set_id": "999"}, "a.txt", []byte("a"))
	assert.Equal(t, http.StatusNotFound, missingSet.Code)

	first := env.upload("/studyfiles", map[string]string{"study_set_id": setID}, "same.txt", []byte("one"))
	second := env.upload("/studyfiles", map[string]string{"study_set_id": setID}, "same.txt", []byte("two"))
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	var a, b database.StudyFile
	decode(t, first, &a)
	decode(t, second, &b)
	assert.NotEqual(t, a.FileURL, b.FileURL, "same file name must not collide")

	// 两份同名文件内容各自独立。
	for file, want := range map[string]string{a.FileURL: "one", b.FileURL: "two"} {
		w := env.get(strings.TrimPrefix(file, "http://files.test"))
		require.Equal(t, http.StatusOK, w.Code)
		body, _ := io.ReadAll(w.Body)
		assert.Equal(t, want, string(body))
	}

	w := env.get("/studyfiles/" + setID)
	require.Equal(t, http.StatusOK, w.Code)
	var files []database.StudyFile
	decode(t, w, &files)
	assert.Len(t, files, 2)

	path := "/studyfiles/" + idString(a.ID)
	assert.Equal(t, http.StatusOK, env.delete(path).Code)
	assert.Equal(t, http.StatusNotFound, env.delete(path).Code)
	assert.Equal(t, http.StatusNotFound, env.get(strings.TrimPrefix(a.FileURL, "http://files.test")).Code)
}

func TestGetOrCreateThreadConcurrent(t *testing.T) {
	env := newTestEnv(t)
	uid := env.signup(t, "kira")
	set := env.createStudySet(t, uid, "Race")

	const workers = 8
	ids := make([]uint, workers)
	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := env.get("/chats/thread/" + idString(set.ID))
			codes[i] = w.Code
			var thread database.ChatThread
			if w.Code == http.StatusOK {
				_ = json.Unmarshal(w.Body.Bytes(), &thread)
			}
			ids[i] = thread.ID
		}(i)
	}
	wg.Wait()

	for i := range ids {
		assert.Equal(t, http.StatusOK, codes[i])
		assert.Equal(t, ids[0], ids[i])
	}
	var count int64
	require.NoError(t, env.db.Model(&database.ChatThread{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	assert.Equal(t, http.StatusNotFound, env.get("/chats/thread/999").Code)
}

func TestGetOrCreateThreadAfterLostInsert(t *testing.T) {
	env := newTestEnv(t)
	uid := env.signup(t, "lena")
	set := env.createStudySet(t, uid, "Lost")

	existing := database.ChatThread{StudySetID: set.ID}
	require.NoError(t, env.db.Create(&existing).Error)

	thread, err := getOrCreateThread(context.Background(), env.db, set.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, thread.ID)
}
