package match

const (
	// EngineVersion is the current version of the matching engine
	EngineVersion = "v1.0.0"

	// SnapshotSchemaVersion is the current version of the snapshot schema
	// Increment this when the snapshot format changes in a backward-incompatible way
	SnapshotSchemaVersion = 1

	// DefaultPriceDecimals is the fixed-point scale of prices when Init is called without WithPriceDecimals.
	DefaultPriceDecimals uint8 = 9

	// MaxPriceDecimals bounds the price scale so that 10^decimals fits in a uint64.
	MaxPriceDecimals uint8 = 18
)
