package config

import (
	"os"
)

type Config struct {
	DBConnStr    string
	JWTSecret    []byte
	ServerPort   string
	ShippingFlat string
	TaxRate      string
}

func LoadConfig() *Config {
	return &Config{
		DBConnStr:    getEnvOrDefault("DB_CONN", "host=localhost port=5432 user=postgres dbname=marketplace sslmode=disable"),
		JWTSecret:    []byte(getEnvOrDefault("JWT_SECRET", "")),
		ServerPort:   getEnvOrDefault("PORT", "8080"),
		ShippingFlat: getEnvOrDefault("SHIPPING_FLAT", "0"),
		TaxRate:      getEnvOrDefault("TAX_RATE", "0"),
	}
}

func getEnvOrDefault(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}
