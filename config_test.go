package mmc

import (
	"errors"
	"testing"
	"time"
)

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"500ms (valid)", 500 * time.Millisecond, false},
		{"2500ms (valid)", 2500 * time.Millisecond, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"150ms (not multiple of 100ms)", 150 * time.Millisecond, true},
		{"250ns (not multiple of 100ms)", 250 * time.Nanosecond, true},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			opt := WithReadTimeout(tt.timeout)
			err := opt(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestReadTimeoutTenths(t *testing.T) {
	config := DefaultConfig()
	if got := config.readTimeoutTenths(); got != 2 {
		t.Errorf("readTimeoutTenths() = %d, want 2", got)
	}

	config.ReadTimeout = MaxReadTimeout
	if got := config.readTimeoutTenths(); got != 255 {
		t.Errorf("readTimeoutTenths() = %d, want 255", got)
	}
}

func TestTransportOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr bool
		check   func(Config) bool
	}{
		{"settle delay", WithSettleDelay(20 * time.Millisecond), false, func(c Config) bool { return c.SettleDelay == 20*time.Millisecond }},
		{"negative settle delay", WithSettleDelay(-time.Millisecond), true, nil},
		{"read size", WithReadSize(128), false, func(c Config) bool { return c.ReadSize == 128 }},
		{"zero read size", WithReadSize(0), true, nil},
		{"terminator", WithTerminator("\r\n"), false, func(c Config) bool { return c.Terminator == "\r\n" }},
		{"empty terminator", WithTerminator(""), true, nil},
		{"open retries", WithOpenRetries(3, time.Second), false, func(c Config) bool { return c.OpenRetries == 3 && c.OpenBackoff == time.Second }},
		{"zero open retries", WithOpenRetries(0, time.Second), true, nil},
		{"negative backoff", WithOpenRetries(3, -time.Second), true, nil},
		{"sync write", WithSyncWrite(), false, func(c Config) bool { return c.WriteMode == WriteModeSynced }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := NewConfig(tt.opt)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewConfig failed: %v", err)
			}
			if !tt.check(config) {
				t.Errorf("option not applied: %+v", config)
			}
		})
	}
}

func TestNewConfigStopsAtFirstError(t *testing.T) {
	_, err := NewConfig(WithBaudRate(9600), WithBaudRate(123456), WithDataBits(7))
	if err != ErrInvalidBaudRate {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
}
