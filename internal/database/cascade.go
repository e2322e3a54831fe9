package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// DeleteStudySet 在一个事务内删除学习集及其文件、聊天线程与消息，
// 返回需要从对象存储中清理的 key。学习集不存在时返回 gorm.ErrRecordNotFound。
func DeleteStudySet(ctx context.Context, db *gorm.DB, studySetID uint) ([]string, error) {
	var keys []string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var set StudySet
		if err := tx.First(&set, studySetID).Error; err != nil {
			return err
		}
		setKeys, err := deleteStudySetTree(tx, []uint{set.ID})
		if err != nil {
			return err
		}
		keys = setKeys
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// DeleteUser 删除用户及其全部从属记录，返回待清理的存储 key。
func DeleteUser(ctx context.Context, db *gorm.DB, userID uint) ([]string, error) {
	var keys []string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}

		var setIDs []uint
		if err := tx.Model(&StudySet{}).Where("user_id = ?", userID).Pluck("id", &setIDs).Error; err != nil {
			return fmt.Errorf("list study sets: %w", err)
		}
		setKeys, err := deleteStudySetTree(tx, setIDs)
		if err != nil {
			return err
		}

		var resumeKeys []string
		if err := tx.Model(&Resume{}).Where("user_id = ?", userID).Pluck("storage_key", &resumeKeys).Error; err != nil {
			return fmt.Errorf("list resume keys: %w", err)
		}

		for _, model := range []any{&Resume{}, &Skill{}, &Experience{}} {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return fmt.Errorf("delete %T: %w", model, err)
			}
		}
		if err := tx.Delete(&user).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		keys = append(setKeys, NonEmptyKeys(resumeKeys...)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func deleteStudySetTree(tx *gorm.DB, setIDs []uint) ([]string, error) {
	if len(setIDs) == 0 {
		return nil, nil
	}

	var fileKeys []string
	if err := tx.Model(&StudyFile{}).Where("study_set_id IN ?", setIDs).Pluck("storage_key", &fileKeys).Error; err != nil {
		return nil, fmt.Errorf("list study file keys: %w", err)
	}

	var threadIDs []uint
	if err := tx.Model(&ChatThread{}).Where("study_set_id IN ?", setIDs).Pluck("id", &threadIDs).Error; err != nil {
		return nil, fmt.Errorf("list chat threads: %w", err)
	}
	if len(threadIDs) > 0 {
		if err := tx.Where("thread_id IN ?", threadIDs).Delete(&ChatMessage{}).Error; err != nil {
			return nil, fmt.Errorf("delete chat messages: %w", err)
		}
		if err := tx.Where("id IN ?", threadIDs).Delete(&ChatThread{}).Error; err != nil {
			return nil, fmt.Errorf("delete chat threads: %w", err)
		}
	}
	if err := tx.Where("study_set_id IN ?", setIDs).Delete(&StudyFile{}).Error; err != nil {
		return nil, fmt.Errorf("delete study files: %w", err)
	}
	if err := tx.Where("id IN ?", setIDs).Delete(&StudySet{}).Error; err != nil {
		return nil, fmt.Errorf("delete study sets: %w", err)
	}

	return NonEmptyKeys(fileKeys...), nil
}

// NonEmptyKeys 过滤掉空的存储 key，返回新切片。
func NonEmptyKeys(keys ...string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
