package model

// All 需要迁移的模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&SubCategory{},
		&ChildSubCategory{},
		&Item{},
		&UserHistory{},
		&LegalDocument{},
		&LegalAgreement{},
		&PdfBook{},
		&PdfBookPurchase{},
		&NotificationSetting{},
	}
}
