package model

// User 用户；api_key 为预先签发的不透明凭证
type User struct {
	ID     int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name   string `json:"name" gorm:"type:varchar(50);uniqueIndex;not null"`
	APIKey string `json:"-" gorm:"column:api_key;type:varchar(50);uniqueIndex;not null"`
}

func (User) TableName() string { return "users" }

// UserRef 资料/推文中引用的用户
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
