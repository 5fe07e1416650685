package enums

import "fmt"

// DeviceOrigin records how a device entered the fleet.
type DeviceOrigin string

const (
	DeviceOriginDonation  DeviceOrigin = "donation"
	DeviceOriginPurchased DeviceOrigin = "purchased"
)

var validDeviceOrigins = []DeviceOrigin{
	DeviceOriginDonation,
	DeviceOriginPurchased,
}

// String implements fmt.Stringer.
func (o DeviceOrigin) String() string {
	return string(o)
}

// IsValid reports whether the value is a known DeviceOrigin.
func (o DeviceOrigin) IsValid() bool {
	for _, candidate := range validDeviceOrigins {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseDeviceOrigin converts raw input into a DeviceOrigin.
func ParseDeviceOrigin(value string) (DeviceOrigin, error) {
	for _, candidate := range validDeviceOrigins {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid device origin %q", value)
}
