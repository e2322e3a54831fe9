package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessin/internal/database"
)

func TestSurveyOverwritesPreferences(t *testing.T) {
	env := newTestEnv(t)
	id := env.signup(t, "dana")
	uid := strconv.FormatUint(uint64(id), 10)

	first := env.postForm(http.MethodPost, "/survey", url.Values{"user_id": {uid}, "preferences": {`{"pace":"fast","topics":["go"]}`}})
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := env.postForm(http.MethodPost, "/survey", url.Values{"user_id": {uid}, "preferences": {`{"pace":"slow"}`}})
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	assert.Contains(t, second.Body.String(), "Preferences updated")
	assert.NotContains(t, second.Body.String(), "password")

	var user database.User
	require.NoError(t, env.db.First(&user, id).Error)
	var prefs map[string]any
	require.NoError(t, json.Unmarshal(user.Preferences, &prefs))
	assert.Equal(t, map[string]any{"pace": "slow"}, prefs)

	malformed := env.postForm(http.MethodPost, "/survey", url.Values{"user_id": {uid}, "preferences": {"{not json"}})
	assert.Equal(t, http.StatusBadRequest, malformed.Code)

	missing := env.postForm(http.MethodPost, "/survey", url.Values{"user_id": {"999"}, "preferences": {"{}"}})
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func skillNames(t *testing.T, env *testEnv, userID uint) []string {
	t.Helper()
	var skills []database.Skill
	require.NoError(t, env.db.Where("user_id = ?", userID).Find(&skills).Error)
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.SkillName)
	}
	sort.Strings(names)
	return names
}

func TestBatchSkillsReconciles(t *testing.T) {
	env := newTestEnv(t)
	id := env.signup(t, "erin")
	uid := strconv.FormatUint(uint64(id), 10)

	type batchResp struct {
		Added   int `json:"added"`
		Removed int `json:"removed"`
	}

	w := env.postForm(http.MethodPost, "/skills/batch", url.Values{"user_id": {uid}, "skills_json": {`["a","b"]`}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"a", "b"}, skillNames(t, env, id))

	w = env.postForm(http.MethodPost, "/skills/batch", url.Values{"user_id": {uid}, "skills_json": {`["b","c"]`}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp batchResp
	decode(t, w, &resp)
	assert.Equal(t, batchResp{Added: 1, Removed: 1}, resp)
	assert.Equal(t, []string{"b", "c"}, skillNames(t, env, id))

	// 重复提交同一集合不产生任何变更。
	w = env.postForm(http.MethodPost, "/skills/batch", url.Values{"user_id": {uid}, "skills": {`["b","c"]`}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	assert.Equal(t, batchResp{}, resp)

	bad := env.postForm(http.MethodPost, "/skills/batch", url.Values{"user_id": {uid}, "skills_json": {`"b"`}})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, []string{"b", "c"}, skillNames(t, env, id))
}

func TestSkillAddDeleteAndProfile(t *testing.T) {
	env := newTestEnv(t)
	id := env.signup(t, "finn")
	uid := strconv.FormatUint(uint64(id), 10)

	w := env.postForm(http.MethodPost, "/skills", url.Values{"user_id": {uid}, "skill_name": {"go"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var skill database.Skill
	decode(t, w, &skill)

	missingUser := env.postForm(http.MethodPost, "/skills", url.Values{"user_id": {"999"}, "skill_name": {"go"}})
	assert.Equal(t, http.StatusNotFound, missingUser.Code)

	w = env.get("/profile/" + uid)
	require.Equal(t, http.StatusOK, w.Code)
	var prof profileResponse
	decode(t, w, &prof)
	require.Len(t, prof.Skills, 1)
	assert.Equal(t, "go", prof.Skills[0].SkillName)
	assert.Empty(t, prof.Resumes)
	assert.Empty(t, prof.Experiences)

	path := "/skills/" + strconv.FormatUint(uint64(skill.ID), 10)
	assert.Equal(t, http.StatusOK, env.delete(path).Code)
	assert.Equal(t, http.StatusNotFound, env.delete(path).Code)
	assert.Equal(t, http.StatusBadRequest, env.delete("/skills/abc").Code)
}

func TestExperienceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.signup(t, "gwen")
	uid := strconv.FormatUint(uint64(id), 10)

	w := env.postForm(http.MethodPost, "/experiences", url.Values{
		"user_id":      {uid},
		"title":        {"Engineer"},
		"company":      {"Acme"},
		"location":     {"Remote"},
		"start_date":   {"2021-01"},
		"bullets_json": {`["built things","fixed things"]`},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var exp database.Experience
	decode(t, w, &exp)
	assert.Equal(t, []string{"built things", "fixed things"}, []string(exp.Bullets))
	require.NotNil(t, exp.Location)
	assert.Nil(t, exp.EndDate)

	path := "/experiences/" + strconv.FormatUint(uint64(exp.ID), 10)
	w = env.postForm(http.MethodPut, path, url.Values{
		"title":   {"Senior Engineer"},
		"company": {"Acme"},
		"bullets": {`["led things"]`},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored database.Experience
	require.NoError(t, env.db.First(&stored, exp.ID).Error)
	assert.Equal(t, "Senior Engineer", stored.Title)
	assert.Equal(t, id, stored.UserID)
	assert.Nil(t, stored.Location)
	assert.Equal(t, []string{"led things"}, []string(stored.Bullets))

	bad := env.postForm(http.MethodPost, "/experiences", url.Values{"user_id": {uid}, "title": {"x"}, "company": {"y"}, "bullets_json": {"nope"}})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	assert.Equal(t, http.StatusOK, env.delete(path).Code)
	assert.Equal(t, http.StatusNotFound, env.delete(path).Code)
	missing := env.postForm(http.MethodPut, path, url.Values{"title": {"t"}, "company": {"c"}})
	assert.Equal(t, http.StatusNotFound, missing.Code)
}
