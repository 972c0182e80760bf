package backtest

// Position sizing modes.
const (
	SizingFixed       = "fixed"
	SizingRiskPercent = "risk_percent_of_equity"
	SizingRiskAmount  = "risk_fixed_amount"
)

// Defaults applied by Config.Normalize.
const (
	DefaultRewardRisk = 1.5
	DefaultMinQty     = 0.01
)

// Config holds the run parameters for a single backtest.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// Commission is charged per leg; a round trip costs twice this.
	Commission float64 `yaml:"commission" json:"commission"`
	// Slippage in price units, folded into the fill price at entry and
	// into the assumed stop/target fills.
	Slippage float64 `yaml:"slippage" json:"slippage"`
	Sizing   string  `yaml:"sizing" json:"sizing"`
	FixedQty float64 `yaml:"fixed_qty" json:"fixed_qty"`
	// RiskPercent is the percent of current equity risked per trade
	// (risk_percent_of_equity mode).
	RiskPercent float64 `yaml:"risk_percent" json:"risk_percent"`
	// RiskAmount is the constant money risked per trade
	// (risk_fixed_amount mode).
	RiskAmount float64 `yaml:"risk_amount" json:"risk_amount"`
	// RewardRisk is the take-profit distance as a multiple of the stop
	// distance. Zero means use the default.
	RewardRisk float64 `yaml:"reward_risk" json:"reward_risk"`
	// MinQty floors risk-based position sizes so a tight stop cannot
	// produce a zero-size trade. Zero means use the default.
	MinQty float64 `yaml:"min_qty" json:"min_qty"`
}

// Normalize fills zero-valued optional fields with defaults.
func (c Config) Normalize() Config {
	if c.Sizing == "" {
		c.Sizing = SizingFixed
	}
	if c.RewardRisk == 0 {
		c.RewardRisk = DefaultRewardRisk
	}
	if c.MinQty == 0 {
		c.MinQty = DefaultMinQty
	}
	return c
}

// Validate checks the configuration, returning a ParameterError on the
// first problem found.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return parameterErrorf("initial capital must be positive, got %v", c.InitialCapital)
	}
	if c.Commission < 0 {
		return parameterErrorf("commission cannot be negative, got %v", c.Commission)
	}
	if c.Slippage < 0 {
		return parameterErrorf("slippage cannot be negative, got %v", c.Slippage)
	}
	if c.RewardRisk <= 0 {
		return parameterErrorf("reward:risk multiplier must be positive, got %v", c.RewardRisk)
	}
	switch c.Sizing {
	case SizingFixed:
		if c.FixedQty <= 0 {
			return parameterErrorf("fixed sizing needs a positive quantity, got %v", c.FixedQty)
		}
	case SizingRiskPercent:
		if c.RiskPercent <= 0 {
			return parameterErrorf("risk percent must be positive, got %v", c.RiskPercent)
		}
	case SizingRiskAmount:
		if c.RiskAmount <= 0 {
			return parameterErrorf("risk amount must be positive, got %v", c.RiskAmount)
		}
	default:
		return parameterErrorf("unknown sizing mode %q", c.Sizing)
	}
	return nil
}
