package model

import "time"

// 实习生状态
const (
	InternActive   = "ACTIVE"
	InternInactive = "INACTIVE"
)

// Intern 实习生，对应 interns
type Intern struct {
	InternID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"intern_id"`
	Name       string    `gorm:"type:varchar(200);not null"                     json:"name"`
	Email      string    `gorm:"type:varchar(254);not null;uniqueIndex"         json:"email"`
	Phone      string    `gorm:"type:varchar(15);not null"                      json:"phone"`
	NationalID string    `gorm:"type:varchar(14);not null;uniqueIndex"         json:"national_id"`
	BirthDate  time.Time `gorm:"type:date;not null"                             json:"birth_date"`
	Course     string    `gorm:"type:varchar(100);not null"                     json:"course"`
	Term       string    `gorm:"type:varchar(20);not null"                      json:"term"`
	Status     string    `gorm:"type:varchar(10);not null;default:'ACTIVE'"     json:"status"`
	BaseModel
}

// TableName 指定表名
func (Intern) TableName() string { return "interns" }
