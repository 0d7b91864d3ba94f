// Package capture watches the recording device over the kernel udev netlink
// socket. When the configured video4linux device disappears, every clip that
// is still recording is force-ended so no RECORDING row outlives its source.
package capture
