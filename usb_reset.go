package mmc

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// usbReenumerateDelay is how long a reset adapter typically needs to come back
const usbReenumerateDelay = 2 * time.Second

// usbResetTool is the usbutils program issuing the reset ioctl
const usbResetTool = "usbreset"

var (
	// lookTool and runTool are replaced in tests
	lookTool = exec.LookPath
	runTool  = func(name string, args ...string) ([]byte, error) {
		return exec.Command(name, args...).CombinedOutput()
	}
	reenumerateSleep = time.Sleep
)

// USBReset resets the adapter behind a port path
type USBReset func(portPath string) error

// ResetUSBDevice resets the USB-serial adapter behind portPath and waits
// for it to re-enumerate. Any transport on the port must be closed first;
// Registry.Recover does that. It fails with ErrUSBInfoNotAvailable when the
// port is not a USB device and ErrUSBResetNotAvailable without usbreset.
// Root permissions are usually required.
func ResetUSBDevice(portPath string) error {
	info, err := GetPortInfo(portPath)
	if err != nil {
		return fmt.Errorf("failed to get port info: %w", err)
	}

	addr, err := usbDevicePath(info.BusNumber, info.DeviceNumber)
	if err != nil {
		return err
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	if output, err := runTool(usbResetTool, addr); err != nil {
		return fmt.Errorf("usbreset %s failed: %w (output: %s)", addr, err, strings.TrimSpace(string(output)))
	}

	reenumerateSleep(usbReenumerateDelay)
	return nil
}

// ResetUSBDeviceBySerial resets the adapter with the given USB serial
// number. Use it when the port path is unknown or has changed.
func ResetUSBDeviceBySerial(serialNumber string) error {
	portPath, err := findPortBySerial(serialNumber)
	if err != nil {
		return err
	}
	return ResetUSBDevice(portPath)
}

func findPortBySerial(serialNumber string) (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}

	for _, portPath := range ports {
		info, err := GetPortInfo(portPath)
		if err == nil && info.SerialNumber == serialNumber {
			return portPath, nil
		}
	}
	return "", fmt.Errorf("%w: no port with serial %s", ErrDeviceNotFound, serialNumber)
}

// IsUSBResetAvailable reports whether usbreset is in PATH
func IsUSBResetAvailable() bool {
	_, err := lookTool(usbResetTool)
	return err == nil
}

// usbDevicePath formats sysfs bus and device numbers as the BBB/DDD address
// usbreset expects
func usbDevicePath(bus, device string) (string, error) {
	if bus == "" || device == "" {
		return "", ErrUSBInfoNotAvailable
	}

	b, err := strconv.Atoi(bus)
	if err != nil || b < 0 {
		return "", fmt.Errorf("%w: bad bus number %q", ErrUSBInfoNotAvailable, bus)
	}
	d, err := strconv.Atoi(device)
	if err != nil || d < 0 {
		return "", fmt.Errorf("%w: bad device number %q", ErrUSBInfoNotAvailable, device)
	}
	return fmt.Sprintf("%03d/%03d", b, d), nil
}
