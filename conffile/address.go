package conffile

import (
	"net/netip"
	"regexp"
	"strings"

	"github.com/davidroman0O/ntpconf/errors"
)

var hostnameLabel = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// ValidateAddress accepts IPv4 and IPv6 addresses and RFC 1123 host names
func ValidateAddress(address string) error {
	if address == "" {
		return errors.New(errors.ErrValidation, "address is empty")
	}
	if _, err := netip.ParseAddr(address); err == nil {
		return nil
	}
	if validHostname(address) {
		return nil
	}
	return errors.WithContext(
		errors.Newf(errors.ErrValidation, "invalid address or host name %q", address),
		map[string]interface{}{"address": address},
	)
}

func validHostname(name string) bool {
	name = strings.TrimSuffix(name, ".")
	if name == "" || len(name) > 253 {
		return false
	}
	labels := strings.Split(name, ".")
	for _, label := range labels {
		if !hostnameLabel.MatchString(label) {
			return false
		}
	}
	// an all-numeric name would be a malformed IPv4 address
	last := labels[len(labels)-1]
	return strings.Trim(last, "0123456789") != ""
}

// validateOptions rejects option tokens that would not read back as the
// same options: empty names, embedded blanks and comment markers.
func validateOptions(options Options) error {
	for _, opt := range options {
		if opt.Name == "" || strings.ContainsAny(opt.Name+opt.Value, " \t\n#") {
			return errors.WithContext(
				errors.Newf(errors.ErrValidation, "invalid option %q", strings.TrimSpace(opt.Name+" "+opt.Value)),
				map[string]interface{}{"option": opt.Name},
			)
		}
	}
	return nil
}

func validateSource(kind Kind, address string, options Options) error {
	if err := ValidateAddress(address); err != nil {
		return errors.WithContext(err, map[string]interface{}{"kind": kind.String()})
	}
	return validateOptions(options)
}
