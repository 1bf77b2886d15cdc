package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                  string
	AllowedOrigins        []string
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int
	IdentityVerifyURL     string
	RedisURL              string
	RedisPassword         string
	SendBufferSize        int
}

func LoadConfig() (*Config, error) {
	port := GetEnv("PORT", "8080")

	// CORS
	frontendURL := GetEnv("FRONTEND_URL", "http://localhost:5173")
	allowedOriginsStr := GetEnv("ALLOWED_ORIGINS", "")

	// Build allowed origins list (Frontend URL + CSV values)
	allowedOrigins := []string{frontendURL}
	if allowedOriginsStr != "" {
		extras := strings.Split(allowedOriginsStr, ",")
		for _, origin := range extras {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	// Security: the signing secret has no default. A missing value must stop
	// the process at startup, not fail per-request.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	accessTTLMinutes := GetEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 60)
	refreshTTLDays := GetEnvAsInt("REFRESH_TOKEN_TTL_DAYS", 7)
	if time.Duration(accessTTLMinutes)*time.Minute >= time.Duration(refreshTTLDays)*24*time.Hour {
		return nil, errors.New("access token TTL must be shorter than refresh token TTL")
	}

	identityVerifyURL := GetEnv("IDENTITY_VERIFY_URL", "http://localhost:9000/api/session/verify")

	cfg := &Config{
		Port:                  port,
		AllowedOrigins:        allowedOrigins,
		JWTSecret:             jwtSecret,
		AccessTokenTTLMinutes: accessTTLMinutes,
		RefreshTokenTTLDays:   refreshTTLDays,
		IdentityVerifyURL:     identityVerifyURL,
		RedisURL:              GetEnv("REDIS_URL", ""),
		RedisPassword:         GetEnv("REDIS_PASSWORD", ""),
		SendBufferSize:        GetEnvAsInt("WS_SEND_BUFFER_SIZE", 256),
	}

	return cfg, nil
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
