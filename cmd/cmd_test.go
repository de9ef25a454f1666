package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	mmc "github.com/allbin/go-mmc"
	"github.com/allbin/go-mmc/motion"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func TestParseAxis(t *testing.T) {
	tests := []struct {
		arg     string
		axes    int
		want    int
		wantErr bool
	}{
		{"0", 4, 0, false},
		{"3", 4, 3, false},
		{"4", 4, 0, true},
		{"-1", 4, 0, true},
		{"x", 4, 0, true},
		{"5", 6, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseAxis(tt.arg, tt.axes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAxis(%q, %d) error = %v, wantErr %v", tt.arg, tt.axes, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseAxis(%q, %d) = %d, expected %d", tt.arg, tt.axes, got, tt.want)
			}
		})
	}
}

func TestFilterPorts(t *testing.T) {
	ports := []string{"/dev/ttyUSB0", "/dev/ttyACM1", "/dev/ttyS0", "/dev/ttyAMA0"}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", ports},
		{"all", ports},
		{"usb", []string{"/dev/ttyUSB0", "/dev/ttyACM1"}},
		{"USB", []string{"/dev/ttyUSB0", "/dev/ttyACM1"}},
		{"standard", []string{"/dev/ttyS0"}},
		{"arm", []string{"/dev/ttyAMA0"}},
		{"bogus", nil},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got := filterPorts(ports, tt.filter)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("filterPorts(%q) = %v, expected %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestGetPortType(t *testing.T) {
	tests := map[string]string{
		"ttyUSB0":  "USB Serial",
		"ttyACM0":  "USB CDC/ACM",
		"ttyAMA0":  "ARM Serial",
		"ttymxc1":  "i.MX Serial",
		"ttyS3":    "Standard Serial",
		"ttyXRUSB": "Serial Port",
	}

	for name, want := range tests {
		if got := getPortType(name); got != want {
			t.Errorf("getPortType(%q) = %q, expected %q", name, got, want)
		}
	}
}

func TestParseHexFrame(t *testing.T) {
	tests := []struct {
		input   string
		want    []byte
		wantErr bool
	}{
		{"4138", []byte("A8"), false},
		{"41 38", []byte("A8"), false},
		{"0x410x38", []byte("A8"), false},
		{"5E", []byte("^"), false},
		{"413", nil, true},
		{"zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseHexFrame(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHexFrame(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != string(tt.want) {
				t.Errorf("parseHexFrame(%q) = %q, expected %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitFrames(t *testing.T) {
	got := splitFrames("A8\r\n]\n\n^\n")
	want := []string{"A8", "]", "^"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitFrames() = %q, expected %q", got, want)
	}

	if got := splitFrames(""); got != nil {
		t.Errorf("splitFrames(\"\") = %q, expected nil", got)
	}
}

func TestPrintable(t *testing.T) {
	if got := printable([]byte("MMC v2\r\n")); got != "MMC v2··" {
		t.Errorf("printable() = %q, expected %q", got, "MMC v2··")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := defaultSettings()

	if s.Baud != mmc.DefaultBaudRate {
		t.Errorf("Baud = %d, expected %d", s.Baud, mmc.DefaultBaudRate)
	}
	if s.Axes != motion.DefaultAxes {
		t.Errorf("Axes = %d, expected %d", s.Axes, motion.DefaultAxes)
	}
	if s.PollDelay != motion.DefaultPollDelay {
		t.Errorf("PollDelay = %v, expected %v", s.PollDelay, motion.DefaultPollDelay)
	}
	if !reflect.DeepEqual(s.homeDistancesInt(), []int{-10000, -10000, -5000, -10000}) {
		t.Errorf("homeDistancesInt() = %v", s.homeDistancesInt())
	}
	if s.LogLevel != "info" {
		t.Errorf("LogLevel = %q, expected info", s.LogLevel)
	}
}

func TestSettingsOptions(t *testing.T) {
	s := defaultSettings()
	s.Baud = 19200
	s.Axes = 6
	s.PollDelay = 100 * time.Millisecond

	tc, err := mmc.NewConfig(s.transportOptions()...)
	if err != nil {
		t.Fatalf("transport options: %v", err)
	}
	if tc.BaudRate != 19200 {
		t.Errorf("BaudRate = %d, expected 19200", tc.BaudRate)
	}

	mc, err := motion.NewConfig(s.motionOptions(false)...)
	if err != nil {
		t.Fatalf("motion options: %v", err)
	}
	if mc.Axes != 6 || mc.PollDelay != 100*time.Millisecond || mc.HomeOnStart {
		t.Errorf("motion config = %+v", mc)
	}
	if len(mc.TransportOptions) != 3 {
		t.Errorf("TransportOptions = %d, expected 3", len(mc.TransportOptions))
	}
}

func TestSettingsOptionsInvalid(t *testing.T) {
	s := defaultSettings()
	s.Baud = 12345

	if _, err := mmc.NewConfig(s.transportOptions()...); err == nil {
		t.Error("expected error for unsupported baud rate")
	}
}

func TestWriteConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mmc.yaml")

	s := defaultSettings()
	s.Port = "/dev/ttyUSB0"
	if err := writeConfigFile(path, s, false); err != nil {
		t.Fatalf("writeConfigFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got configFile
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("written file is not valid YAML: %v", err)
	}
	if got.Port != "/dev/ttyUSB0" || got.PollDelay != "200ms" || got.HomeTimeout != "1m0s" {
		t.Errorf("written config = %+v", got)
	}

	if err := writeConfigFile(path, s, false); err == nil {
		t.Error("expected error when overwriting without force")
	}
	s.Port = "/dev/ttyUSB1"
	if err := writeConfigFile(path, s, true); err != nil {
		t.Fatalf("writeConfigFile(force) error = %v", err)
	}
}

func TestConfigFileReadByViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mmc.yaml")

	s := defaultSettings()
	s.Port = "/dev/ttyACM0"
	s.StopDelay = 75 * time.Millisecond
	s.HomeDistances = []int64{-200, -300}
	if err := writeConfigFile(path, s, false); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	if got := v.GetString(keyPort); got != "/dev/ttyACM0" {
		t.Errorf("port = %q, expected /dev/ttyACM0", got)
	}
	if got := v.GetDuration(keyStopDelay); got != 75*time.Millisecond {
		t.Errorf("stop_delay = %v, expected 75ms", got)
	}
	if got := v.GetDuration(keyHomeTimeout); got != motion.DefaultHomeTimeout {
		t.Errorf("home_timeout = %v, expected %v", got, motion.DefaultHomeTimeout)
	}
	if got := v.GetIntSlice(keyHomeDistances); !reflect.DeepEqual(got, []int{-200, -300}) {
		t.Errorf("home_distances = %v, expected [-200 -300]", got)
	}
}

func TestSettingFlagsRegistered(t *testing.T) {
	for key, flag := range settingFlags {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("flag %q for key %q is not registered", flag, key)
		}
	}
}

func TestSameAxisState(t *testing.T) {
	a := motion.AxisStatus{Index: 1, Alive: true, State: motion.Moving, Position: 10, LastStatusAt: time.Now()}
	b := a
	b.LastStatusAt = a.LastStatusAt.Add(time.Second)
	if !sameAxisState(a, b) {
		t.Error("poll timestamp alone should not count as a change")
	}

	b.Position = 11
	if sameAxisState(a, b) {
		t.Error("position change not detected")
	}
}

func TestUnresponsive(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"protocol timeout", fmt.Errorf("handshake: %w", motion.ErrProtocolTimeout), true},
		{"transport unavailable", &mmc.TransportError{Op: "open", Path: "/dev/ttyUSB0"}, true},
		{"wrong banner", motion.ErrProtocolMismatch, false},
		{"missing port", mmc.ErrDeviceNotFound, false},
	}

	for _, tt := range tests {
		if got := unresponsive(tt.err); got != tt.want {
			t.Errorf("unresponsive(%s) = %v, expected %v", tt.name, got, tt.want)
		}
	}
}
