package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all sve configuration.
type Config struct {
	SVE SVEConfig `mapstructure:"sve" yaml:"sve"`
	VM  VMConfig  `mapstructure:"vm" yaml:"vm"`

	// VPN maps profile names to "<local port>;<vpn client command>".
	// Names are case-insensitive and stored lowercase.
	VPN map[string]string `mapstructure:"vpn" yaml:"vpn"`
}

// SVEConfig holds tool-level settings.
type SVEConfig struct {
	// OTPTool is the token generator command line.
	OTPTool string `mapstructure:"otp_tool" yaml:"otp_tool"`

	// OTPPin is the token PIN. When empty the operator is asked once.
	OTPPin string `mapstructure:"otp_pin" yaml:"otp_pin"`

	// BaseImage is the template disk image. XXXX in the file name is
	// replaced by the profile's port.
	BaseImage string `mapstructure:"base_img" yaml:"base_img"`

	// Launcher is one of open, print or exec. Empty selects the platform default.
	Launcher string `mapstructure:"launcher" yaml:"launcher"`
}

// VMConfig holds emulator and guest login settings.
type VMConfig struct {
	// System is the QEMU system emulator binary.
	System string `mapstructure:"vm_system" yaml:"vm_system"`

	// Memory is passed to -m.
	Memory string `mapstructure:"vm_mem" yaml:"vm_mem"`

	User     string `mapstructure:"vm_user" yaml:"vm_user"`
	Password string `mapstructure:"vm_pwd" yaml:"vm_pwd"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		SVE: SVEConfig{
			OTPTool: "stoken",
		},
		VM: VMConfig{
			System: "qemu-system-x86_64",
			Memory: "512",
		},
		VPN: map[string]string{
			"example1": "<localhost_port>;<snx_connection>",
			"example2": "2201;snx -s foo.com -u bar",
		},
	}
}

// Load reads configuration from the config file, environment and defaults.
// A missing config file is created from DefaultConfig and created is true.
//
// Every setting can be overridden through SVE_<SECTION>_<KEY>, for example
// SVE_VM_VM_PWD.
func Load(paths *Paths) (cfg *Config, created bool, err error) {
	if _, err := os.Stat(paths.ConfigFile); errors.Is(err, fs.ErrNotExist) {
		if err := paths.EnsureHome(); err != nil {
			return nil, false, fmt.Errorf("create home dir: %w", err)
		}
		if err := WriteDefault(paths.ConfigFile); err != nil {
			return nil, false, err
		}
		created = true
	}

	v := viper.New()

	// Profiles are not defaulted so the examples never merge into a user's list
	defaults := DefaultConfig()
	v.SetDefault("sve.otp_tool", defaults.SVE.OTPTool)
	v.SetDefault("sve.otp_pin", defaults.SVE.OTPPin)
	v.SetDefault("sve.base_img", defaults.SVE.BaseImage)
	v.SetDefault("sve.launcher", defaults.SVE.Launcher)
	v.SetDefault("vm.vm_system", defaults.VM.System)
	v.SetDefault("vm.vm_mem", defaults.VM.Memory)
	v.SetDefault("vm.vm_user", defaults.VM.User)
	v.SetDefault("vm.vm_pwd", defaults.VM.Password)

	v.SetConfigFile(paths.ConfigFile)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, created, fmt.Errorf("failed to read config: %w", err)
	}

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, created, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.SVE.BaseImage = ExpandHome(cfg.SVE.BaseImage)
	if cfg.VPN == nil {
		cfg.VPN = map[string]string{}
	}

	return cfg, created, nil
}

// WriteDefault writes DefaultConfig to path. The file may later hold
// passwords, so it is only readable by the owner.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
