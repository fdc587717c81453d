package model

import "strings"

// bcrypt 哈希的可识别前缀；其余取值均视为旧版明文
var passwordHashPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// PasswordHashLen bcrypt 编码后的固定长度
const PasswordHashLen = 60

// User 用户表，对应 users
type User struct {
	UserID    int64  `gorm:"primaryKey;autoIncrement"                  json:"user_id"`
	Username  string `gorm:"type:varchar(100);not null;uniqueIndex"    json:"username"`
	Password  string `gorm:"type:varchar(255);not null"                json:"-"` // 旧版明文或 bcrypt 哈希
	Name      string `gorm:"type:varchar(100);not null"                json:"name"`
	Email     string `gorm:"type:varchar(255);index"                   json:"email,omitempty"`
	IsManager bool   `gorm:"not null;default:false"                    json:"is_manager"`
	IsAdmin   bool   `gorm:"not null;default:false"                    json:"is_admin"`
	IsActive  bool   `gorm:"not null;default:true"                     json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// HasHashedPassword 密码字段是否已是哈希形式
func (u *User) HasHashedPassword() bool {
	return IsPasswordHash(u.Password)
}

// IsPasswordHash 判断存储值是否为 bcrypt 哈希：前缀与长度须同时满足。
// 以 "$2a$" 开头但长度不符的明文仍按旧版明文处理
func IsPasswordHash(stored string) bool {
	if len(stored) != PasswordHashLen {
		return false
	}
	for _, p := range passwordHashPrefixes {
		if strings.HasPrefix(stored, p) {
			return true
		}
	}
	return false
}
