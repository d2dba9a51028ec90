package models

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *sql.DB
var GormDB *gorm.DB

// InitDB 连接 MySQL 并自动建表。DSN 为空时跳过（项目/分镜目录不可用，流水线不受影响）。
func InitDB(dsn string) {
	if dsn == "" {
		log.Println("未配置 MySQL DSN，跳过数据库初始化")
		return
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("打开数据库失败: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		log.Fatalf("连接数据库失败: %v", err)
	}

	DB = db
	GormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: DB}), &gorm.Config{})
	if err != nil {
		log.Fatalf("GORM 初始化失败: %v", err)
	}

	if err := GormDB.AutoMigrate(&Project{}, &Shot{}); err != nil {
		log.Printf("自动建表失败: %v", err)
	}

	log.Println("数据库连接成功")
}
