/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/logger"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [frame...]",
	Short: "Send raw frames to the controller as one transaction",
	Long: `Send raw command frames to the configured port and print the reply.

All frames are sent as a single transaction: no other traffic can get
between them, and each frame is followed by the inter-step delay. The line
terminator is appended to every frame. The payload of the last read is
printed.

Frames can be provided as:
- Command line arguments: mmc send A8 ]
- From stdin (pipe), one frame per line: printf 'A8\n]\n' | mmc send
- Interactive mode: mmc send (prompts for a frame)

Examples:
  mmc send " "              # wake the controller and read its banner
  mmc send A8 ^             # select axis 0 and ask whether it moves
  mmc send --hex 41 38      # frames given as hex bytes
  mmc send A8 @ --read-size 0`,
	Run: func(cmd *cobra.Command, args []string) {
		frames := args
		if len(frames) == 0 {
			var err error
			frames, err = readFrames()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading frames: %v\n", err)
				os.Exit(1)
			}
		}
		if len(frames) == 0 {
			fmt.Fprintln(os.Stderr, "Error: no frames to send")
			os.Exit(1)
		}

		hexMode, _ := cmd.Flags().GetBool("hex")
		readSize, _ := cmd.Flags().GetInt("read-size")

		steps := make([]mmc.Step, 0, len(frames))
		for _, frame := range frames {
			data := []byte(frame)
			if hexMode {
				var err error
				if data, err = parseHexFrame(frame); err != nil {
					fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
					os.Exit(1)
				}
			}
			steps = append(steps, mmc.Step{Frame: data, ReadSize: readSize})
		}

		delay := loadSettings().InterStepDelay
		if cmd.Flags().Changed("delay") {
			delay, _ = cmd.Flags().GetDuration("delay")
		}

		if err := sendFrames(steps, delay); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("hex", "x", false, "Interpret each frame as hexadecimal (e.g. '4138' for 'A8')")
	sendCmd.Flags().IntP("read-size", "r", mmc.DefaultReadSize, "Bytes to read after each frame (0 = don't read)")
	sendCmd.Flags().DurationP("delay", "d", 0, "Delay after each frame (default: inter-step delay)")
}

// readFrames reads one frame per line from a pipe, or prompts for one
func readFrames() ([]string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		if frame := promptForFrame(); frame != "" {
			return []string{frame}, nil
		}
		return nil, nil
	}

	stdinData, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	return splitFrames(string(stdinData)), nil
}

// splitFrames splits piped input into frames, dropping line endings and
// empty lines
func splitFrames(s string) []string {
	var frames []string
	for line := range strings.Lines(s) {
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			frames = append(frames, line)
		}
	}
	return frames
}

func promptForFrame() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter frame to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func parseHexFrame(hexStr string) ([]byte, error) {
	// Remove common hex prefixes and whitespace
	hexStr = strings.ReplaceAll(hexStr, " ", "")
	hexStr = strings.ReplaceAll(hexStr, "0x", "")
	hexStr = strings.ReplaceAll(hexStr, "0X", "")

	if len(hexStr)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}

	result := make([]byte, 0, len(hexStr)/2)
	for i := 0; i < len(hexStr); i += 2 {
		hexByte := hexStr[i : i+2]
		var b byte
		if _, err := fmt.Sscanf(hexByte, "%x", &b); err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s': %v", hexByte, err)
		}
		result = append(result, b)
	}

	return result, nil
}

func sendFrames(steps []mmc.Step, delay time.Duration) error {
	s := loadSettings()
	if s.Port == "" {
		return fmt.Errorf("no port configured (use --port, MMC_PORT or the config file)")
	}

	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), s.Port)

	reg := mmc.NewRegistry(mmc.WithRegistryLogger(logger.GetLogger()))
	defer func() { _ = reg.CloseAll() }()

	t, err := reg.Acquire(s.Port, s.transportOptions()...)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("✗"), err)
	}

	fmt.Printf("%s Sending %d frame(s)...\n", infoStyle.Render("📤"), len(steps))

	reply, err := t.Transact(steps, delay)
	if err != nil {
		return fmt.Errorf("%s transaction failed: %w", errorStyle.Render("✗"), err)
	}

	m := t.Metrics()
	fmt.Printf("%s Sent %d bytes, received %d bytes\n", successStyle.Render("✓"), m.BytesWritten.Load(), m.BytesRead.Load())

	if len(reply) == 0 {
		fmt.Printf("%s no reply\n", infoStyle.Render("📋"))
		return nil
	}
	fmt.Printf("%s Reply: %s  %s\n", infoStyle.Render("📋"), printable(reply), mutedStyle.Render(fmt.Sprintf("% X", reply)))
	return nil
}

// printable replaces non-printable bytes for display
func printable(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, string(data))
}
