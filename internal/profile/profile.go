// Package profile holds the pure parts of profile editing: payload parsing
// and skill-set reconciliation.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"lessin/internal/database"
)

var (
	ErrMalformedPreferences = errors.New("preferences must be valid JSON")
	ErrMalformedList        = errors.New("expected a JSON array of strings")
)

// ParsePreferences 校验偏好设置为合法 JSON，原样保存。
func ParsePreferences(raw string) (datatypes.JSON, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !json.Valid([]byte(raw)) {
		return nil, ErrMalformedPreferences
	}
	return datatypes.JSON(raw), nil
}

// ParseNameList 解析 JSON 字符串数组，空串视为空列表。
func ParseNameList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedList, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Diff 描述把已有技能调和成目标集合所需的插入与删除。
type Diff struct {
	Add    []string
	Remove []uint
}

// Empty reports whether the stored set already matches.
func (d Diff) Empty() bool { return len(d.Add) == 0 && len(d.Remove) == 0 }

// Reconcile computes the inserts and deletes that turn existing into the
// desired set. Names compare by exact string. Stored rows whose name is not
// desired are removed, as are extra rows duplicating a name already kept.
func Reconcile(existing []database.Skill, desired []string) Diff {
	want := make(map[string]struct{}, len(desired))
	for _, name := range desired {
		want[name] = struct{}{}
	}

	var diff Diff
	kept := make(map[string]struct{}, len(existing))
	for _, skill := range existing {
		if _, ok := want[skill.SkillName]; !ok {
			diff.Remove = append(diff.Remove, skill.ID)
			continue
		}
		if _, dup := kept[skill.SkillName]; dup {
			diff.Remove = append(diff.Remove, skill.ID)
			continue
		}
		kept[skill.SkillName] = struct{}{}
	}

	for _, name := range desired {
		if _, ok := kept[name]; ok {
			continue
		}
		kept[name] = struct{}{}
		diff.Add = append(diff.Add, name)
	}

	return diff
}
