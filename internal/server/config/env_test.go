package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv_OverlaysSetValues(t *testing.T) {
	t.Setenv("ADDRESS", ":9090")
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("ACCESS_TOKEN_VALIDITY", "30m")
	t.Setenv("OCR_LANGUAGES", "eng,fra")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, ":9090", c.EndpointAddrHTTP)
	assert.Equal(t, "env-secret", c.SecretKey)
	assert.Equal(t, 30*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, "eng,fra", c.OCRLanguages)
	assert.Equal(t, int64(1048576), c.MaxUploadBytes)
}

func TestParseEnv_UnsetAndMalformedValuesKeepDefaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_VALIDITY", "not-a-duration")
	t.Setenv("MAX_UPLOAD_BYTES", "lots")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, int64(20*1024*1024), c.MaxUploadBytes)
}
