/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// portsCmd represents the ports command
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports a controller can be attached to",
	Long: `List the communication-capable serial devices on the system.

USB adapters (ttyUSB*, ttyACM*), standard UARTs (ttyS*) and the common
ARM SoC ports are included. Virtual terminals and pseudo-terminals are
excluded.

With --watch the command keeps running and reports ports as they appear
and disappear until interrupted.

Examples:
  mmc ports
  mmc ports --table --filter usb
  mmc ports --watch
  mmc ports info /dev/ttyUSB0`,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		watch, _ := cmd.Flags().GetBool("watch")

		ports, err := mmc.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filteredPorts := filterPorts(ports, filterType)

		switch {
		case len(filteredPorts) == 0 && filterType != "":
			fmt.Printf("No serial ports found matching filter: %s\n", filterType)
		case len(filteredPorts) == 0:
			fmt.Println("No serial ports found")
		case tableFormat:
			renderTable(filteredPorts)
		default:
			renderSimple(filteredPorts)
		}

		if watch {
			if err := watchPorts(filterType); err != nil {
				fmt.Fprintf(os.Stderr, "Error watching ports: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

// portInfoCmd represents the ports info command
var portInfoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

For USB devices the vendor/product IDs, serial number, interface and bus
location are read from sysfs. The serial number can be passed to
'mmc reset --serial' to reset the adapter even after it re-enumerates.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		info, err := mmc.GetPortInfo(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)

		fmt.Printf("%s %s\n\n", labelStyle.Render("Port:"), info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Type:        %s\n", getPortType(info.Name))
		fmt.Printf("  Description: %s\n", info.Description)

		if !info.IsUSB() {
			return
		}

		fmt.Printf("\n%s\n", labelStyle.Render("USB device:"))
		for _, field := range []struct{ label, value string }{
			{"Vendor ID", info.VendorID},
			{"Product ID", info.ProductID},
			{"Serial", info.SerialNumber},
			{"Interface", info.InterfaceNumber},
			{"Bus", info.BusNumber},
			{"Device", info.DeviceNumber},
			{"Manufacturer", info.Manufacturer},
			{"Product", info.Product},
		} {
			if field.value != "" {
				fmt.Printf("  %-13s %s\n", field.label+":", field.value)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.AddCommand(portInfoCmd)

	portsCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	portsCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	portsCmd.Flags().BoolP("watch", "w", false, "Keep running and report ports as they are plugged and unplugged")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []string, filterType string) []string {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []string
	for _, port := range ports {
		if matchesFilter(port, filterType) {
			filtered = append(filtered, port)
		}
	}
	return filtered
}

func matchesFilter(port, filterType string) bool {
	name := strings.ToLower(port[strings.LastIndex(port, "/")+1:])
	switch strings.ToLower(filterType) {
	case "", "all":
		return true
	case "usb":
		return strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
	case "standard":
		return strings.HasPrefix(name, "ttys")
	case "arm":
		return strings.HasPrefix(name, "ttyama")
	}
	return false
}

// renderTable renders the port list in a styled static table format
func renderTable(ports []string) {
	fmt.Printf("Found %d serial port(s):\n\n", len(ports))

	portWidth := 15
	typeWidth := 18
	serialWidth := 16
	descWidth := 30

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240")).
		PaddingBottom(1)

	cellStyle := lipgloss.NewStyle().
		PaddingRight(2)

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s",
		portWidth, "Port",
		typeWidth, "Type",
		serialWidth, "Serial",
		descWidth, "Description")
	fmt.Println(headerStyle.Render(header))

	for _, port := range ports {
		info, err := mmc.GetPortInfo(port)
		if err != nil {
			row := fmt.Sprintf("%-*s %-*s %-*s %-*s",
				portWidth, port,
				typeWidth, "Unknown",
				serialWidth, "",
				descWidth, fmt.Sprintf("Error: %v", err))
			fmt.Println(cellStyle.Render(row))
			continue
		}

		row := fmt.Sprintf("%-*s %-*s %-*s %-*s",
			portWidth, info.Name,
			typeWidth, getPortType(info.Name),
			serialWidth, info.SerialNumber,
			descWidth, info.Description)
		fmt.Println(cellStyle.Render(row))
	}
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []string) {
	for _, port := range ports {
		fmt.Println(port)
	}
}

// watchPorts prints hotplug events until interrupted
func watchPorts(filterType string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	events, cleanup, err := mmc.WatchPorts(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	addedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true)
	removedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	fmt.Println("\nWatching for port changes, press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping watch...")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return ev.Err
			}
			if !matchesFilter(ev.Path, filterType) {
				continue
			}

			timestamp := time.Now().Format("15:04:05")
			switch ev.Kind {
			case mmc.PortAdded:
				fmt.Printf("[%s] %s %s\n", timestamp, addedStyle.Render("+"), ev.Path)
			case mmc.PortRemoved:
				fmt.Printf("[%s] %s %s\n", timestamp, removedStyle.Render("-"), ev.Path)
			}
		}
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
