package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lessin/internal/chat"
)

// User 表示系统中的账号信息。
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string         `gorm:"size:255" json:"email"`
	PasswordHash string         `gorm:"column:password;size:255;not null" json:"-"`
	Preferences  datatypes.JSON `json:"preferences"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Plan 保存一次学习计划生成的结果。
type Plan struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	Topics    string                      `gorm:"type:text;not null" json:"topics"`
	Content   string                      `gorm:"type:text;not null" json:"content"`
	Steps     datatypes.JSONSlice[string] `json:"steps"`
	CreatedAt time.Time                   `json:"created_at"`
}

// Resume 表示用户上传的简历文件。
type Resume struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	FileName   string    `gorm:"size:255" json:"file_name"`
	FileURL    string    `gorm:"size:512" json:"file_url"`
	StorageKey string    `gorm:"size:512" json:"-"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

type Skill struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"index;not null" json:"user_id"`
	SkillName string `gorm:"size:128;not null" json:"skill_name"`
}

// Experience 是一段工作/项目经历，要点以 JSON 列表内嵌保存。
type Experience struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	UserID    uint                        `gorm:"index;not null" json:"user_id"`
	Title     string                      `gorm:"size:255;not null" json:"title"`
	Company   string                      `gorm:"size:255;not null" json:"company"`
	Location  *string                     `gorm:"size:255" json:"location"`
	Type      *string                     `gorm:"size:64" json:"type"`
	StartDate *string                     `gorm:"size:32" json:"start_date"`
	EndDate   *string                     `gorm:"size:32" json:"end_date"`
	Bullets   datatypes.JSONSlice[string] `json:"bullets"`
}

type StudySet struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// StudyFile 是学习集下上传的资料文件。
type StudyFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudySetID uint      `gorm:"index;not null" json:"study_set_id"`
	FileName   string    `gorm:"size:255" json:"file_name"`
	FileURL    string    `gorm:"size:512" json:"file_url"`
	StorageKey string    `gorm:"size:512" json:"-"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// ChatThread 每个学习集至多一个，唯一索引是并发 get-or-create 的最终约束。
type ChatThread struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudySetID uint      `gorm:"uniqueIndex;not null" json:"study_set_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	ThreadID  uint        `gorm:"index;not null" json:"thread_id"`
	Sender    chat.Sender `gorm:"type:varchar(16);not null" json:"sender"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// AllModels 列出需要迁移的全部记录类型。
func AllModels() []any {
	return []any{
		&User{},
		&Plan{},
		&Resume{},
		&Skill{},
		&Experience{},
		&StudySet{},
		&StudyFile{},
		&ChatThread{},
		&ChatMessage{},
	}
}

// Migrate creates or updates the schema from the declared record shapes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
