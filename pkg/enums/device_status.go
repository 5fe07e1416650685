package enums

// DeviceStatus is the device's side of the assignment state machine. It is a
// cache of the authoritative distribution state and may lag it briefly; the
// assignment engine reconciles the two on every read.
type DeviceStatus string

const (
	DeviceStatusAvailable DeviceStatus = "available"
	DeviceStatusAssigned  DeviceStatus = "assigned"
)

// String implements fmt.Stringer.
func (s DeviceStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DeviceStatus.
func (s DeviceStatus) IsValid() bool {
	return s == DeviceStatusAvailable || s == DeviceStatusAssigned
}
