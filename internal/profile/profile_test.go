package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lessin/internal/database"
)

func skills(names ...string) []database.Skill {
	out := make([]database.Skill, 0, len(names))
	for i, n := range names {
		out = append(out, database.Skill{ID: uint(i + 1), UserID: 1, SkillName: n})
	}
	return out
}

func TestReconcileReplacesSet(t *testing.T) {
	diff := Reconcile(skills("a", "b"), []string{"b", "c"})
	assert.Equal(t, []string{"c"}, diff.Add)
	assert.Equal(t, []uint{1}, diff.Remove)
}

func TestReconcileIdempotent(t *testing.T) {
	diff := Reconcile(skills("b", "c"), []string{"c", "b"})
	assert.True(t, diff.Empty())
}

func TestReconcileCollapsesDuplicates(t *testing.T) {
	diff := Reconcile(nil, []string{"go", "go", "sql"})
	assert.Equal(t, []string{"go", "sql"}, diff.Add)
	assert.Empty(t, diff.Remove)

	diff = Reconcile(skills("go", "go", "rust"), []string{"go"})
	assert.Empty(t, diff.Add)
	assert.Equal(t, []uint{2, 3}, diff.Remove)
}

func TestReconcileIsCaseSensitive(t *testing.T) {
	diff := Reconcile(skills("Go"), []string{"go"})
	assert.Equal(t, []string{"go"}, diff.Add)
	assert.Equal(t, []uint{1}, diff.Remove)
}

func TestReconcileEmptyTargetRemovesAll(t *testing.T) {
	diff := Reconcile(skills("a", "b"), []string{})
	assert.Empty(t, diff.Add)
	assert.Equal(t, []uint{1, 2}, diff.Remove)
}

func TestParsePreferences(t *testing.T) {
	got, err := ParsePreferences(` ["math","history"] `)
	require.NoError(t, err)
	assert.JSONEq(t, `["math","history"]`, string(got))

	_, err = ParsePreferences(`{"topics":`)
	assert.ErrorIs(t, err, ErrMalformedPreferences)
	_, err = ParsePreferences("")
	assert.ErrorIs(t, err, ErrMalformedPreferences)
}

func TestParseNameList(t *testing.T) {
	names, err := ParseNameList(`["a","b"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	names, err = ParseNameList("null")
	require.NoError(t, err)
	assert.Equal(t, []string{}, names)

	names, err = ParseNameList("")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = ParseNameList(`{"a":1}`)
	assert.ErrorIs(t, err, ErrMalformedList)
	_, err = ParseNameList(`[1,2]`)
	assert.ErrorIs(t, err, ErrMalformedList)
}
