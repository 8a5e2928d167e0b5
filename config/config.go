package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv 加载 .env 文件中的环境变量
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}
}

// GetEnv 读取环境变量
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvDefault 读取环境变量，不存在时返回默认值
func GetEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
