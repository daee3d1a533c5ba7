package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"os"
	"strings"
)

// InstanceID identifies the machine this process runs on. It hashes the first
// active MAC address, falling back to the hostname, into an ID like "POS-A1B2C3D4".
func InstanceID() string {
	seed := macAddress()
	if seed == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			return "POS-UNKNOWN"
		}
		seed = host
	}

	hash := sha256.Sum256([]byte(seed))
	return "POS-" + strings.ToUpper(hex.EncodeToString(hash[:])[:8])
}

func macAddress() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, i := range interfaces {
		if i.Flags&net.FlagUp != 0 && i.Flags&net.FlagLoopback == 0 && len(i.HardwareAddr) > 0 {
			return i.HardwareAddr.String()
		}
	}
	return ""
}
