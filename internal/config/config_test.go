package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
services:
  - type: repair
    name: Repair
    price: "150"
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Booking.IdempotencyTTL)
	assert.Equal(t, int64(95), cfg.Refund.FullRefundPercent)
	assert.Equal(t, int64(50), cfg.Refund.PartialRefundPercent)
	assert.Equal(t, "UTC", cfg.Calendar.Timezone)

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, model.ServiceRepair, catalog[0].Type)
	assert.Equal(t, "150.00", catalog[0].PriceText)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  host: db.internal
calendar:
  timezone: UTC
`)
	t.Setenv("BOOKING_DB_HOST", "override.internal")
	t.Setenv("BOOKING_TIMEZONE", "America/Los_Angeles")
	t.Setenv("BOOKING_SERVER_PORT", "9090")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, "America/Los_Angeles", cfg.Calendar.Timezone)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"driver", "database:\n  driver: mysql\n"},
		{"timezone", "database:\n  driver: memory\ncalendar:\n  timezone: Mars/Olympus\n"},
		{"percent", "database:\n  driver: memory\nrefund:\n  full_refund_percent: 120\n"},
		{"service", "database:\n  driver: memory\nservices:\n  - type: CLEANING\n    price: \"10\"\n"},
		{"price", "database:\n  driver: memory\nservices:\n  - type: REPAIR\n    price: \"-1\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
