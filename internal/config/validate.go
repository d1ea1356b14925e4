package config

import (
	"strings"
)

// ValidationError represents one missing essential setting.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors lists every missing essential setting of a config file.
type ValidationErrors struct {
	File   string
	Errors []ValidationError
}

// Error returns one line per problem followed by a pointer to the file.
func (e *ValidationErrors) Error() string {
	var b strings.Builder
	for _, ve := range e.Errors {
		b.WriteString(ve.Message)
		b.WriteByte('\n')
	}
	b.WriteString("Please edit config file: ")
	b.WriteString(e.File)
	return b.String()
}

// Validate checks the settings without which no command can run. file is
// named in the returned error.
func Validate(cfg *Config, file string) error {
	checks := []struct {
		field, value, message string
	}{
		{"sve.otp_tool", cfg.SVE.OTPTool, "OTP tool is not set"},
		{"sve.base_img", cfg.SVE.BaseImage, "Image file is not set"},
		{"vm.vm_system", cfg.VM.System, "VM exec/system is not set"},
		{"vm.vm_mem", cfg.VM.Memory, "VM RAM is not set"},
		{"vm.vm_user", cfg.VM.User, "VM user is not set"},
		{"vm.vm_pwd", cfg.VM.Password, "VM pass is not set"},
	}

	var errs []ValidationError
	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			errs = append(errs, ValidationError{Field: c.field, Message: c.message})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationErrors{File: file, Errors: errs}
}
