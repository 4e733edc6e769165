package mysql

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB 连接 MySQL 并保留包级句柄
func InitDB(dsn string) error {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true, // 把驱动错误翻成 gorm.ErrDuplicatedKey 等
	})
	if err != nil {
		return err
	}
	DB = db
	return nil
}
