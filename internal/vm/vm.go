// Package vm supervises the emulator that hosts the VPN client.
// It wraps the low-level hypervisor driver with working image handling,
// SSH readiness probing, and persistent per-port state.
package vm
