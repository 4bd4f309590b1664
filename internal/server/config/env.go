package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays values from the process environment (typically loaded
// from a .env file by the entrypoint). Unset or malformed values leave the
// current contents of config untouched.
func parseEnv(config *Config) {
	if v := envValue("ADDRESS"); v != "" {
		config.EndpointAddrHTTP = v
	}
	if v := envValue("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := envValue("SECRET_KEY"); v != "" {
		config.SecretKey = v
	}
	if v := envValue("ACCESS_TOKEN_VALIDITY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.AccessTokenValidityDuration = d
		}
	}
	if v := envValue("S3_ROOT_USER"); v != "" {
		config.S3RootUser = v
	}
	if v := envValue("S3_ROOT_PASSWORD"); v != "" {
		config.S3RootPassword = v
	}
	if v := envValue("S3_BUCKET"); v != "" {
		config.S3Bucket = v
	}
	if v := envValue("S3_REGION"); v != "" {
		config.S3Region = v
	}
	if v := envValue("S3_BASE_ENDPOINT"); v != "" {
		config.S3BaseEndpoint = v
	}
	if v := envValue("S3_PRESIGN_EXPIRY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.S3PresignExpiry = d
		}
	}
	if v := envValue("OCR_LANGUAGES"); v != "" {
		config.OCRLanguages = v
	}
	if v := envValue("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MaxUploadBytes = n
		}
	}
}

func envValue(key string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return ""
}
