package model

import "time"

// 文档类型
const (
	DocCommitmentTerm = "COMMITMENT_TERM"
	DocInternshipPlan = "INTERNSHIP_PLAN"
	DocReport         = "REPORT"
	DocEvaluation     = "EVALUATION"
	DocOther          = "OTHER"
)

// IsValidDocType 文档类型是否合法
func IsValidDocType(t string) bool {
	switch t {
	case DocCommitmentTerm, DocInternshipPlan, DocReport, DocEvaluation, DocOther:
		return true
	}
	return false
}

// Document 实习文档，对应 documents
type Document struct {
	DocumentID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"document_id"`
	InternshipID string    `gorm:"type:uuid;not null;index"                       json:"internship_id"`
	DocType      string    `gorm:"type:varchar(20);not null"                      json:"doc_type"`
	FilePath     string    `gorm:"type:varchar(500);not null"                     json:"-"`
	FileName     string    `gorm:"type:varchar(255);not null"                     json:"file_name"`
	FileSize     int64     `gorm:"not null"                                       json:"file_size"`
	ContentType  string    `gorm:"type:varchar(100);not null;default:''"          json:"content_type"`
	Description  string    `gorm:"type:varchar(200);not null;default:''"          json:"description"`
	UploadedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"uploaded_at"`
	UploadedBy   *string   `gorm:"type:uuid"                                      json:"uploaded_by,omitempty"`

	// 关联
	Internship *Internship `gorm:"foreignKey:InternshipID;references:InternshipID;constraint:OnDelete:CASCADE" json:"internship,omitempty"`
	Uploader   *User       `gorm:"foreignKey:UploadedBy;references:UserID;constraint:OnDelete:SET NULL"       json:"-"`
}

// TableName 指定表名
func (Document) TableName() string { return "documents" }
