/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/logger"
	"github.com/spf13/cobra"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset [port]",
	Short: "Reset the USB serial adapter of a controller",
	Long: `Perform a USB-level reset on the adapter a controller is attached to.
This recovers adapters that stopped answering without unplugging them.

A port given by path is reopened after the reset to check that the adapter
answers again. The device re-enumerates after the reset, which may change
the port path (e.g. /dev/ttyUSB0 might become /dev/ttyUSB1). Reset by
serial number or use --wait to learn the new path.

Without a port argument or --serial the configured port is reset.

Requirements:
- usbreset utility must be installed (from usbutils package)
- Root/sudo permissions required for USB operations

Examples:
  sudo mmc reset /dev/ttyUSB0
  sudo mmc reset --serial NC7ILXW1 --wait 10s`,
	Args: func(cmd *cobra.Command, args []string) error {
		serialFlag, _ := cmd.Flags().GetString("serial")
		if serialFlag != "" && len(args) > 0 {
			return errors.New("cannot specify both port path and --serial flag")
		}
		return cobra.MaximumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !mmc.IsUSBResetAvailable() {
			fmt.Fprintln(os.Stderr, "Error: usbreset utility not available")
			fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			os.Exit(1)
		}

		serialFlag, _ := cmd.Flags().GetString("serial")
		wait, _ := cmd.Flags().GetDuration("wait")

		ctx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()

		// Start watching before the reset so the re-enumeration is not missed
		var events <-chan mmc.PortEvent
		if wait > 0 {
			ch, cleanup, err := mmc.WatchPorts(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error watching ports: %v\n", err)
				os.Exit(1)
			}
			defer func() { _ = cleanup() }()
			events = ch
		}

		var err error
		if serialFlag != "" {
			fmt.Printf("Resetting USB device with serial: %s\n", serialFlag)
			err = mmc.ResetUSBDeviceBySerial(serialFlag)
		} else {
			s := loadSettings()
			portPath := s.Port
			if len(args) == 1 {
				portPath = args[0]
			}
			if portPath == "" {
				fmt.Fprintln(os.Stderr, "Error: requires a port path argument, --serial or a configured port")
				os.Exit(1)
			}
			fmt.Printf("Resetting USB device: %s\n", portPath)
			if events == nil {
				recoverPort(portPath, s)
				return
			}
			err = mmc.ResetUSBDevice(portPath)
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, mmc.ErrUSBInfoNotAvailable) {
				fmt.Fprintln(os.Stderr, "This device does not appear to be a USB device")
			}
			os.Exit(1)
		}

		fmt.Println("USB device reset successfully")

		if events == nil {
			fmt.Println("Device will re-enumerate (port path may change)")
			fmt.Println("\nUse 'mmc ports --table' to see updated device list")
			return
		}

		path, ok := awaitPort(ctx, events, serialFlag)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: device did not come back within %s\n", wait)
			os.Exit(1)
		}
		fmt.Printf("Device is back at %s\n", path)
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringP("serial", "s", "", "Reset device by serial number")
	resetCmd.Flags().Duration("wait", 0, "Wait up to this long for the device to re-enumerate (0 = don't wait)")
}

// recoverPort resets the adapter behind portPath through a registry and
// reopens the port
func recoverPort(portPath string, s settings) {
	reg := mmc.NewRegistry(mmc.WithRegistryLogger(logger.GetLogger()))
	defer func() { _ = reg.CloseAll() }()

	if _, err := reg.Recover(portPath, s.transportOptions()...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		switch {
		case errors.Is(err, mmc.ErrUSBInfoNotAvailable):
			fmt.Fprintln(os.Stderr, "This device does not appear to be a USB device")
		case errors.Is(err, mmc.ErrTransportUnavailable):
			fmt.Fprintln(os.Stderr, "The adapter was reset but did not come back at this path")
			fmt.Fprintln(os.Stderr, "Use 'mmc ports --table' to see updated device list")
		}
		os.Exit(1)
	}
	fmt.Printf("%s USB device reset, %s reopened\n", successStyle.Render("✓"), portPath)
}

// awaitPort returns the first added port matching serialNumber, or any
// added port when serialNumber is empty
func awaitPort(ctx context.Context, events <-chan mmc.PortEvent, serialNumber string) (string, bool) {
	for {
		var ev mmc.PortEvent
		select {
		case <-ctx.Done():
			return "", false
		case e, ok := <-events:
			if !ok {
				return "", false
			}
			ev = e
		}

		if ev.Err != nil || ev.Kind != mmc.PortAdded {
			continue
		}
		if serialNumber == "" {
			return ev.Path, true
		}

		// udev may not have populated sysfs yet
		for range 5 {
			info, err := mmc.GetPortInfo(ev.Path)
			if err == nil && info.SerialNumber == serialNumber {
				return ev.Path, true
			}
			time.Sleep(200 * time.Millisecond)
		}
	}
}
