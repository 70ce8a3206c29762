package ntpclient

import "github.com/davidroman0O/ntpconf/conffile"

// ValidateAddress accepts IPv4 and IPv6 addresses and RFC 1123 host names
func ValidateAddress(address string) error {
	return conffile.ValidateAddress(address)
}
