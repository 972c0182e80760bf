package strategy

import (
	"time"

	"github.com/amirphl/strategy-lab/internal/candle"
)

// sessionFilter gates entries on UTC trading-hour windows. Enabled sessions
// combine with OR, so a bar passes when it falls inside any of them; the
// three windows together cover the full day, which makes the all-enabled
// default a no-op.
func sessionFilter() FilterComponent {
	return FilterComponent{
		Name:        "session",
		DisplayName: "Trading Session Filter",
		Description: "Allow entries only during the enabled London, New York and Tokyo sessions (UTC)",
		Params: []ParamSpec{
			{Name: "london", Kind: KindFlag, Default: true,
				Description: "allow trades during London hours (01:00 - 08:15 UTC)"},
			{Name: "new_york", Kind: KindFlag, Default: true,
				Description: "allow trades during New York hours (08:15 - 15:45 UTC)"},
			{Name: "tokyo", Kind: KindFlag, Default: true,
				Description: "allow trades during Tokyo hours (15:45 - 01:00 UTC)"},
		},
		Apply: applySessions,
	}
}

func applySessions(candles []candle.Candle, frame *Frame, params Params) error {
	london := params.Bool("london", true)
	newYork := params.Bool("new_york", true)
	tokyo := params.Bool("tokyo", true)

	ok := make([]bool, len(candles))
	for i := range candles {
		ts := candles[i].Timestamp.UTC()
		ok[i] = (london && inLondonSession(ts)) ||
			(newYork && inNewYorkSession(ts)) ||
			(tokyo && inTokyoSession(ts))
	}
	return frame.Restrict(ok)
}

// London: 01:00 - 08:15 UTC.
func inLondonSession(ts time.Time) bool {
	h, m := ts.Hour(), ts.Minute()
	return (h >= 1 && h < 8) || (h == 8 && m <= 15)
}

// New York: 08:15 - 15:45 UTC.
func inNewYorkSession(ts time.Time) bool {
	h, m := ts.Hour(), ts.Minute()
	return (h == 8 && m >= 15) || (h > 8 && h < 15) || (h == 15 && m <= 45)
}

// Tokyo: 15:45 - 01:00 UTC, wrapping around midnight.
func inTokyoSession(ts time.Time) bool {
	h, m := ts.Hour(), ts.Minute()
	return (h == 15 && m >= 45) || h > 15 || h == 0 || (h == 1 && m == 0)
}
