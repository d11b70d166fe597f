package profile

// Profile 是注册成功后写入资料库的用户记录，以用户ID为键。
type Profile struct {
	UserID    string `json:"userId" bson:"_id" gorm:"column:user_id;primaryKey;size:128"`
	Name      string `json:"name" bson:"name" gorm:"column:name;size:255"`
	Email     string `json:"email" bson:"email" gorm:"column:email;size:255"`
	CreatedAt string `json:"createdAt" bson:"createdAt" gorm:"column:created_at;size:64"` // ISO-8601
	Language  string `json:"language" bson:"language" gorm:"column:language;size:8"`
	Theme     string `json:"theme" bson:"theme" gorm:"column:theme;size:8"`
}

// TableName 指定 gorm 表名。
func (Profile) TableName() string { return "users" }
