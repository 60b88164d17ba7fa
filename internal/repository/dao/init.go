package dao

import "gorm.io/gorm"

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Session{},
		&Project{},
		&Contribution{},
	)
}

// dropAllTables wipes the public schema. Only the integration tests call it.
func dropAllTables(db *gorm.DB) error {
	var tableNames []string
	if err := db.Table("information_schema.tables").
		Where("table_schema = ?", "public").
		Pluck("table_name", &tableNames).Error; err != nil {
		return err
	}

	for _, tableName := range tableNames {
		if err := db.Exec(`DROP TABLE IF EXISTS "` + tableName + `" CASCADE`).Error; err != nil {
			return err
		}
	}

	return nil
}
