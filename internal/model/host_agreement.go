package model

// HostAgreement 企业合作协议，对应 host_agreements
type HostAgreement struct {
	AgreementID  string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"agreement_id"`
	CompanyName  string  `gorm:"type:varchar(200);not null"                     json:"company_name"`
	TaxID        string  `gorm:"type:varchar(18);not null;uniqueIndex"         json:"tax_id"`
	Address      string  `gorm:"type:text;not null"                             json:"address"`
	Phone        string  `gorm:"type:varchar(15);not null"                      json:"phone"`
	ContactName  string  `gorm:"type:varchar(200);not null"                     json:"contact_name"`
	ContactEmail *string `gorm:"type:varchar(254)"                              json:"contact_email,omitempty"`
	IsActive     bool    `gorm:"not null"                                       json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (HostAgreement) TableName() string { return "host_agreements" }
