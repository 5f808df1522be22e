package entity

// InstanceConfig sizes a virtual GT instance. The values are passed
// verbatim to the vgt creation record; the driver rejects sizes it
// cannot back with real resources.
type InstanceConfig struct {
	// ApertureMiB is the virtual graphics aperture size in MiB.
	ApertureMiB uint
	// GMMiB is the virtual graphics memory size in MiB.
	GMMiB uint
	// FenceCount is the number of fence registers to reserve.
	FenceCount uint
}

// DefaultInstanceConfig carries the sizing the vgt documentation
// suggests for a desktop guest.
func DefaultInstanceConfig() InstanceConfig {
	return InstanceConfig{
		ApertureMiB: 64,
		GMMiB:       512,
		FenceCount:  4,
	}
}
