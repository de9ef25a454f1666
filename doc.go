// Package mmc drives multi-axis stepper motion controllers over a serial line.
//
// The root package holds the line and transport layer: raw termios ports,
// port discovery, hotplug watching, USB recovery, and the per-port Transport
// that serializes every exchange with a controller. The motion subpackage
// builds the axis state machine on top of it.
//
// # Transports
//
// A Registry hands out exactly one Transport per port identifier, opening
// the line on first use with a bounded number of retries:
//
//	reg := mmc.NewRegistry()
//	defer reg.CloseAll()
//
//	t, err := reg.Acquire("/dev/ttyUSB0", mmc.WithBaudRate(9600))
//	if errors.Is(err, mmc.ErrTransportUnavailable) {
//	    // the port could not be opened within the retry budget
//	}
//
// Every frame written is followed by the line terminator ("\r" by default),
// and every read is preceded by a short settle delay. Transact runs a
// sequence of write/read steps while holding the port, so no other caller's
// bytes can be interleaved:
//
//	reply, err := t.Transact([]mmc.Step{
//	    mmc.NewStep("A8", 0),
//	    mmc.NewStep("^", 64),
//	}, 50*time.Millisecond)
//
// # Port Discovery
//
// List available serial ports and get USB device metadata:
//
//	ports, err := mmc.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := mmc.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s (VID=%s PID=%s Serial=%s)\n",
//	        info.Path, info.Description, info.VendorID, info.ProductID, info.SerialNumber)
//	}
//
// WatchPorts reports adapters being plugged in or removed.
//
// # USB Device Management (Linux)
//
// A hung USB-serial bridge can be recovered through the registry, which
// closes the port, resets the adapter and opens the port again:
//
//	t, err := reg.Recover("/dev/ttyUSB0", mmc.WithBaudRate(9600))
//
// ResetUSBDevice and ResetUSBDeviceBySerial reset an adapter directly.
//
// Requires usbreset utility from usbutils package and root/sudo permissions.
//
// # Error Handling
//
// Use errors.Is() for error type checking:
//
//	if errors.Is(err, mmc.ErrDeviceNotFound) {
//	    // no such device
//	}
//
// Transport failures are reported as *TransportError, which always matches
// ErrTransportUnavailable and unwraps to the underlying cause.
//
// # Default Configuration
//
//   - BaudRate: 9600
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - ReadTimeout: 200ms
//   - SettleDelay: 10ms
//   - Terminator: "\r"
//   - OpenRetries: 10, 250ms apart
package mmc
