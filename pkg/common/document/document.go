package document

import (
	"time"

	"github.com/google/uuid"
)

// Base 所有资源共有的字段：标识符、创建时间、内部版本号
type Base struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index;autoCreateTime" json:"createdAt"`
	Version   int       `gorm:"column:version;default:0;not null" json:"__v"`
}

func (b *Base) GetID() string { return b.ID }

// AssignID 创建时分配标识符，之后不可变
func (b *Base) AssignID() {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
}

// Touch 补齐创建时间
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
}

func (b *Base) CurrentVersion() int { return b.Version }

func (b *Base) NextVersion() { b.Version++ }

// ValidID 标识符必须是合法的 UUID
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
