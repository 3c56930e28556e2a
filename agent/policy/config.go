package policy

// Config holds the fixed policy constants of the pipeline.
type Config struct {
	MaxQtyPerOrder      int `envconfig:"MAX_QTY_PER_ORDER" split_words:"true" default:"100"`
	HistoryLimit        int `envconfig:"HISTORY_LIMIT" split_words:"true" default:"5"`
	ScanLimit           int `envconfig:"SCAN_LIMIT" split_words:"true" default:"100"`
	DaysPerUnit         int `envconfig:"DAYS_PER_UNIT" split_words:"true" default:"1"`
	RefillThresholdDays int `envconfig:"REFILL_THRESHOLD_DAYS" split_words:"true" default:"3"`
}

var DefaultConfig = Config{
	MaxQtyPerOrder:      100,
	HistoryLimit:        5,
	ScanLimit:           100,
	DaysPerUnit:         1,
	RefillThresholdDays: 3,
}

// Normalize replaces non-positive values with defaults.
func (c Config) Normalize() Config {
	if c.MaxQtyPerOrder <= 0 {
		c.MaxQtyPerOrder = DefaultConfig.MaxQtyPerOrder
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultConfig.HistoryLimit
	}
	if c.ScanLimit <= 0 {
		c.ScanLimit = DefaultConfig.ScanLimit
	}
	if c.DaysPerUnit <= 0 {
		c.DaysPerUnit = DefaultConfig.DaysPerUnit
	}
	if c.RefillThresholdDays < 0 {
		c.RefillThresholdDays = DefaultConfig.RefillThresholdDays
	}
	return c
}
