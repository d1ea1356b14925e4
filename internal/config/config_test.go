package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) *Paths {
	t.Helper()
	paths := NewPaths(t.TempDir())
	if err := os.WriteFile(paths.ConfigFile, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return paths
}

const sampleConfig = `sve:
  otp_tool: stoken
  otp_pin: "1234"
  base_img: /images/snx_XXXX.qcow2
vm:
  vm_system: qemu-system-x86_64
  vm_mem: 512
  vm_user: snx
  vm_pwd: secret
vpn:
  Office: "2201;snx -s foo.com -u bar"
  lab: "2202;snx -s lab.example.org -u bar; echo x"
`

func TestLoadCreatesDefault(t *testing.T) {
	paths := NewPaths(filepath.Join(t.TempDir(), ".sve"))

	cfg, created, err := Load(paths)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !created {
		t.Error("created should be true for a fresh home")
	}

	info, err := os.Stat(paths.ConfigFile)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}
	home, err := os.Stat(paths.Home)
	if err != nil {
		t.Fatalf("home not created: %v", err)
	}
	if home.Mode().Perm() != 0700 {
		t.Errorf("home mode = %v, want 0700", home.Mode().Perm())
	}

	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("loaded default mismatch (-want +got):\n%s", diff)
	}

	_, created, err = Load(paths)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second Load must not recreate the file")
	}
}

func TestLoadFile(t *testing.T) {
	paths := writeConfig(t, sampleConfig)

	cfg, created, err := Load(paths)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if created {
		t.Error("existing file must not be replaced")
	}

	want := &Config{
		SVE: SVEConfig{
			OTPTool:   "stoken",
			OTPPin:    "1234",
			BaseImage: "/images/snx_XXXX.qcow2",
		},
		VM: VMConfig{
			System:   "qemu-system-x86_64",
			Memory:   "512",
			User:     "snx",
			Password: "secret",
		},
		VPN: map[string]string{
			"office": "2201;snx -s foo.com -u bar",
			"lab":    "2202;snx -s lab.example.org -u bar; echo x",
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if err := Validate(cfg, paths.ConfigFile); err != nil {
		t.Errorf("complete config should validate: %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	paths := writeConfig(t, sampleConfig)
	t.Setenv("SVE_VM_VM_PWD", "from-env")

	cfg, _, err := Load(paths)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VM.Password != "from-env" {
		t.Errorf("Password = %q, want from-env", cfg.VM.Password)
	}
}

func TestLoadExpandsHome(t *testing.T) {
	paths := writeConfig(t, "sve:\n  base_img: ~/images/snx_XXXX.img\n")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	cfg, _, err := Load(paths)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "images", "snx_XXXX.img"); cfg.SVE.BaseImage != want {
		t.Errorf("BaseImage = %q, want %q", cfg.SVE.BaseImage, want)
	}
}

func TestLoadMalformed(t *testing.T) {
	paths := writeConfig(t, "sve: [unterminated\n")
	if _, _, err := Load(paths); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidateDefault(t *testing.T) {
	err := Validate(DefaultConfig(), "/home/u/.sve/config.yaml")

	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected *ValidationErrors, got %v", err)
	}
	var fields []string
	for _, e := range verrs.Errors {
		fields = append(fields, e.Field)
	}
	want := []string{"sve.base_img", "vm.vm_user", "vm.vm_pwd"}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	wantMsg := "Image file is not set\nVM user is not set\nVM pass is not set\n" +
		"Please edit config file: /home/u/.sve/config.yaml"
	if err.Error() != wantMsg {
		t.Errorf("message = %q", err.Error())
	}
}

func TestValidateEverythingMissing(t *testing.T) {
	err := Validate(&Config{}, "c.yaml")
	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatal("expected *ValidationErrors")
	}
	if len(verrs.Errors) != 6 {
		t.Errorf("expected 6 problems, got %d", len(verrs.Errors))
	}
	if !strings.HasPrefix(err.Error(), "OTP tool is not set\n") {
		t.Errorf("unexpected order: %q", err.Error())
	}
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    Profile
		wantErr bool
	}{
		{
			name:  "simple",
			value: "2201;snx -s foo.com -u bar",
			want:  Profile{Name: "simple", Port: "2201", Command: "snx -s foo.com -u bar"},
		},
		{
			name:  "command keeps later separators",
			value: "2202;snx -s a; echo b",
			want:  Profile{Name: "command keeps later separators", Port: "2202", Command: "snx -s a; echo b"},
		},
		{
			name:  "spaces trimmed",
			value: " 2203 ; snx ",
			want:  Profile{Name: "spaces trimmed", Port: "2203", Command: "snx"},
		},
		{name: "no separator", value: "2201 snx", wantErr: true},
		{name: "placeholder port", value: "<localhost_port>;<snx_connection>", wantErr: true},
		{name: "port zero", value: "0;snx", wantErr: true},
		{name: "port too large", value: "70000;snx", wantErr: true},
		{name: "empty command", value: "2201;", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfile(tt.name, tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProfile) {
					t.Errorf("err = %v, want ErrInvalidProfile", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsExample(t *testing.T) {
	for name, want := range map[string]bool{
		"example1":  true,
		"myExample": true,
		"office":    false,
		"exampl":    false,
	} {
		if got := IsExample(name); got != want {
			t.Errorf("IsExample(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestProfileNamesSorted(t *testing.T) {
	cfg := &Config{VPN: map[string]string{"zeta": "1;a", "alpha": "2;b", "mid": "3;c"}}

	want := []string{"alpha", "mid", "zeta"}
	if diff := cmp.Diff(want, cfg.ProfileNames()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	// Listing is restartable
	if diff := cmp.Diff(want, cfg.ProfileNames()); diff != "" {
		t.Errorf("second listing differs:\n%s", diff)
	}
}

func TestLookupProfileIgnoresCase(t *testing.T) {
	cfg := &Config{VPN: map[string]string{"office": "2201;snx"}}
	if _, ok := cfg.LookupProfile("Office"); !ok {
		t.Error("lookup should ignore case")
	}
	if _, ok := cfg.LookupProfile("missing"); ok {
		t.Error("unknown profile found")
	}
}

func TestGetPathsHonoursEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)

	paths, err := GetPaths()
	if err != nil {
		t.Fatal(err)
	}
	if paths.Home != dir {
		t.Errorf("Home = %q, want %q", paths.Home, dir)
	}
	if paths.ConfigFile != filepath.Join(dir, "config.yaml") {
		t.Errorf("ConfigFile = %q", paths.ConfigFile)
	}
	if paths.StateFile != filepath.Join(dir, "state.yaml") {
		t.Errorf("StateFile = %q", paths.StateFile)
	}
}

func TestExpandHome(t *testing.T) {
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := ExpandHome("~user/x"); got != "~user/x" {
		t.Errorf("~user must be left alone: %q", got)
	}
}
