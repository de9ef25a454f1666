package mmc

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 9600 {
		t.Errorf("Expected BaudRate 9600, got %d", config.BaudRate)
	}

	if config.DataBits != 8 {
		t.Errorf("Expected DataBits 8, got %d", config.DataBits)
	}

	if config.StopBits != 1 {
		t.Errorf("Expected StopBits 1, got %d", config.StopBits)
	}

	if config.Parity != ParityNone {
		t.Errorf("Expected Parity None, got %v", config.Parity)
	}

	if config.SettleDelay != 10*time.Millisecond {
		t.Errorf("Expected SettleDelay 10ms, got %v", config.SettleDelay)
	}

	if config.Terminator != "\r" {
		t.Errorf("Expected Terminator \\r, got %q", config.Terminator)
	}

	if config.OpenRetries != 10 || config.OpenBackoff != 250*time.Millisecond {
		t.Errorf("Expected 10 retries 250ms apart, got %d and %v", config.OpenRetries, config.OpenBackoff)
	}
}

func TestFunctionalOptions(t *testing.T) {
	config := DefaultConfig()

	// Test WithBaudRate
	err := WithBaudRate(115200)(&config)
	if err != nil {
		t.Errorf("WithBaudRate failed: %v", err)
	}
	if config.BaudRate != 115200 {
		t.Errorf("Expected BaudRate 115200, got %d", config.BaudRate)
	}

	// Test WithDataBits
	err = WithDataBits(7)(&config)
	if err != nil {
		t.Errorf("WithDataBits failed: %v", err)
	}
	if config.DataBits != 7 {
		t.Errorf("Expected DataBits 7, got %d", config.DataBits)
	}

	// Test WithStopBits
	err = WithStopBits(2)(&config)
	if err != nil {
		t.Errorf("WithStopBits failed: %v", err)
	}
	if config.StopBits != 2 {
		t.Errorf("Expected StopBits 2, got %d", config.StopBits)
	}

	// Test WithParity
	err = WithParity(ParityEven)(&config)
	if err != nil {
		t.Errorf("WithParity failed: %v", err)
	}
	if config.Parity != ParityEven {
		t.Errorf("Expected Parity Even, got %v", config.Parity)
	}
}

func TestInvalidBaudRate(t *testing.T) {
	config := DefaultConfig()
	err := WithBaudRate(123456)(&config)
	if err == nil {
		t.Error("Expected error for invalid baud rate")
	}
	if err != ErrInvalidBaudRate {
		t.Errorf("Expected ErrInvalidBaudRate, got %v", err)
	}
}

func TestInvalidDataBits(t *testing.T) {
	config := DefaultConfig()
	err := WithDataBits(9)(&config)
	if err == nil {
		t.Error("Expected error for invalid data bits")
	}
	if err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestInvalidStopBits(t *testing.T) {
	config := DefaultConfig()
	err := WithStopBits(3)(&config)
	if err == nil {
		t.Error("Expected error for invalid stop bits")
	}
	if err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestGetBaudRate(t *testing.T) {
	tests := []struct {
		input    int
		hasError bool
	}{
		{115200, false},
		{9600, false},
		{57600, false},
		{123456, true}, // Invalid baud rate
	}

	for _, test := range tests {
		result, err := getBaudRate(test.input)
		if test.hasError {
			if err == nil {
				t.Errorf("Expected error for baud rate %d", test.input)
			}
			if err != ErrInvalidBaudRate {
				t.Errorf("Expected ErrInvalidBaudRate for %d, got %v", test.input, err)
			}
		} else {
			if err != nil {
				t.Errorf("Unexpected error for baud rate %d: %v", test.input, err)
			}
			if result == 0 {
				t.Errorf("Got zero result for valid baud rate %d", test.input)
			}
		}
	}
}

func TestOpenNonExistentDevice(t *testing.T) {
	_, err := Open("/dev/nonexistent")
	if err == nil {
		t.Fatal("Expected error when opening non-existent device")
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
}

func TestClassifyOpenError(t *testing.T) {
	tests := []struct {
		errno unix.Errno
		want  error
	}{
		{unix.ENOENT, ErrDeviceNotFound},
		{unix.ENODEV, ErrDeviceNotFound},
		{unix.EACCES, ErrPermissionDenied},
		{unix.EPERM, ErrPermissionDenied},
	}

	for _, tt := range tests {
		if got := classifyOpenError(tt.errno); got != tt.want {
			t.Errorf("classifyOpenError(%v) = %v, want %v", tt.errno, got, tt.want)
		}
	}

	if got := classifyOpenError(unix.EBUSY); got != unix.EBUSY {
		t.Errorf("classifyOpenError(EBUSY) = %v, want EBUSY unchanged", got)
	}
}

func TestClosedPortOperations(t *testing.T) {
	p := &port{device: "/dev/ttyUSB0", closed: true}

	ops := map[string]func() error{
		"Read":        func() error { _, err := p.Read(make([]byte, 1)); return err },
		"Write":       func() error { _, err := p.Write([]byte("x")); return err },
		"Drain":       p.Drain,
		"FlushInput":  p.FlushInput,
		"FlushOutput": p.FlushOutput,
		"Close":       p.Close,
	}

	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrPortClosed) {
			t.Errorf("%s on closed port = %v, expected ErrPortClosed", name, err)
		}
	}
}
