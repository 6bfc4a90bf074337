package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tour-booking/pkg/common/document"
	errs "tour-booking/pkg/common/errors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

type User struct {
	document.Base
	Name                 string     `gorm:"type:varchar(100);not null" json:"name"`
	Email                string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Photo                string     `gorm:"type:varchar(255)" json:"photo,omitempty"`
	Role                 Role       `gorm:"type:varchar(20);default:user;not null" json:"role"`
	PasswordHash         string     `gorm:"type:varchar(255);not null" json:"-"`
	PasswordChangedAt    *time.Time `json:"passwordChangedAt,omitempty"`
	PasswordResetToken   *string    `gorm:"type:char(64);index" json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `gorm:"default:true;index" json:"-"` // 注销后隐藏，不物理删除
}

// TableName 定义映射表名
func (User) TableName() string {
	return "users"
}

func AutoMigrate(db *gorm.DB) error {
	return db.Set("gorm:table_options", "COMMENT='用户表'").
		AutoMigrate(&User{})
}

// ActiveScope 已注销的用户对所有查询不可见
func ActiveScope(db *gorm.DB) *gorm.DB {
	return db.Where(clause.Eq{Column: clause.Column{Name: "active"}, Value: true})
}

func IsActive(u *User) bool { return u.Active }

func (u *User) Prepare() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleUser
	}
}

func (u *User) Validate() error {
	v := &errs.ValidationError{}
	if u.Name == "" {
		v.Add("name", "Please tell us your name!")
	}
	switch {
	case u.Email == "":
		v.Add("email", "Please provide your email.")
	case !emailPattern.MatchString(u.Email):
		v.Add("email", "Please provide a valid email.")
	}
	if !u.Role.Valid() {
		v.Add("role", fmt.Sprintf("`%s` is not a valid enum value for path `role`.", u.Role))
	}
	return v.ErrOrNil()
}

// ValidatePassword 校验明文密码与确认密码
func ValidatePassword(password, confirm string) error {
	v := &errs.ValidationError{}
	switch {
	case password == "":
		v.Add("password", "Please provide a password.")
	case len(password) < MinPasswordLength:
		v.Add("password", fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
	}
	switch {
	case confirm == "":
		v.Add("passwordConfirm", "Please confirm your password.")
	case confirm != password:
		v.Add("passwordConfirm", "Passwords are not the same!")
	}
	return v.ErrOrNil()
}

// SetPassword 写入新的密码哈希；已存在的用户同时记录修改时间
func (u *User) SetPassword(plain string, cost int, now time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	isNew := u.PasswordHash == ""
	u.PasswordHash = string(hash)
	if !isNew {
		// 提前一秒，保证随后签发的令牌 iat 不早于修改时间
		changed := now.Add(-time.Second)
		u.PasswordChangedAt = &changed
	}
	return nil
}

// CorrectPassword 比较候选密码与存储的哈希
func (u *User) CorrectPassword(candidate string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

// ChangedPasswordAfter 令牌签发时间（秒）早于最近一次改密时间
func (u *User) ChangedPasswordAfter(issuedAt int64) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt < u.PasswordChangedAt.Unix()
}

// CreatePasswordResetToken 返回发给用户的明文令牌，库里只存 sha256
func (u *User) CreatePasswordResetToken(now time.Time, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)
	hashed := HashResetToken(token)
	expires := now.Add(ttl)
	u.PasswordResetToken = &hashed
	u.PasswordResetExpires = &expires
	return token, nil
}

func (u *User) ClearResetToken() {
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
}

func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Profile 作为导游被展开时的字段（不含 __v、passwordChangedAt）
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
	Role  Role   `json:"role"`
}

func (u *User) Profile() *Profile {
	return &Profile{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}

// Author 作为评论作者被展开时的字段
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

func (u *User) Author() *Author {
	return &Author{ID: u.ID, Name: u.Name, Photo: u.Photo}
}
