package config

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// ConnectDB 连接 MySQL 数据库，DSN 从环境变量 MYSQL_DSN 读取
func ConnectDB() (*sql.DB, error) {
	dsn := GetEnv("MYSQL_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("MYSQL_DSN not configured")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	fmt.Println("Connected to MySQL database!")
	return db, nil
}
