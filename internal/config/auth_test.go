package config

import (
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns default when env not set",
			key:          "TEST_KEY_1",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
		{
			name:         "returns env value when set",
			key:          "TEST_KEY_2",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "trims surrounding whitespace",
			key:          "TEST_KEY_3",
			defaultValue: "default",
			envValue:     "  padded  ",
			want:         "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)

			got := GetEnvOrDefault(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("GetEnvOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvSecondsOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"unset uses default", "", 2 * time.Second},
		{"whole seconds", "300", 300 * time.Second},
		{"fractional seconds", "0.5", 500 * time.Millisecond},
		{"zero is allowed", "0", 0},
		{"negative falls back", "-1", 2 * time.Second},
		{"garbage falls back", "soon", 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_SECONDS", tt.envValue)

			if got := GetEnvSecondsOrDefault("TEST_SECONDS", 2*time.Second); got != tt.want {
				t.Errorf("GetEnvSecondsOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTSecretManagement(t *testing.T) {
	originalSecret := GetJWTSecret()
	newSecret := []byte("test-secret")

	t.Run("set and restore JWT secret", func(t *testing.T) {
		restore := SetJWTSecret(newSecret)

		if string(GetJWTSecret()) != string(newSecret) {
			t.Errorf("JWT secret not updated, got %s, want %s",
				string(GetJWTSecret()), string(newSecret))
		}

		restore()

		if string(GetJWTSecret()) != string(originalSecret) {
			t.Errorf("JWT secret not restored, got %s, want %s",
				string(GetJWTSecret()), string(originalSecret))
		}
	})

	t.Run("concurrent access to JWT secret", func(t *testing.T) {
		done := make(chan bool)
		for i := 0; i < 10; i++ {
			go func() {
				GetJWTSecret()
				done <- true
			}()
		}

		for i := 0; i < 10; i++ {
			<-done
		}
	})
}
