package enums

// DistributionStatus is the authoritative lifecycle state of a loan record.
// The transition active -> returned is terminal and happens exactly once.
type DistributionStatus string

const (
	DistributionStatusActive   DistributionStatus = "active"
	DistributionStatusReturned DistributionStatus = "returned"
)

// String implements fmt.Stringer.
func (s DistributionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DistributionStatus.
func (s DistributionStatus) IsValid() bool {
	return s == DistributionStatusActive || s == DistributionStatusReturned
}
