package analyzer

import "time"

// DailyAggregate is one trading day collapsed from fine-grained bars.
// BuyVolume + SellVolume <= TotalVolume and Delta == BuyVolume - SellVolume.
type DailyAggregate struct {
	Date        time.Time `json:"date"`
	Delta       int64     `json:"delta"`
	TotalVolume int64     `json:"total_volume"`
	BuyVolume   int64     `json:"buy_volume"`
	SellVolume  int64     `json:"sell_volume"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	RangePct    float64   `json:"range_pct"` // (high-low)/close*100
	DeltaPct    float64   `json:"delta_pct"` // delta/total*100
	Bars        int       `json:"bars"`
}

// WeeklyAggregate groups daily aggregates by the Monday of their ISO week
type WeeklyAggregate struct {
	WeekStart   time.Time `json:"week_start"`
	Delta       int64     `json:"delta"`
	TotalVolume int64     `json:"total_volume"`
	DeltaPct    float64   `json:"delta_pct"`
	Days        int       `json:"days"`
	Open        float64   `json:"open"`
	Close       float64   `json:"close"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	AvgRangePct float64   `json:"avg_range_pct"`
	AvgVolume   float64   `json:"avg_volume"`
}

// Components holds the eight raw window-score components, each in [0,1]
type Components struct {
	NetDelta      float64 `json:"s1_net_delta"`
	DeltaSlope    float64 `json:"s2_delta_slope"`
	DeltaShift    float64 `json:"s3_delta_shift"`
	AccumRatio    float64 `json:"s4_accum_ratio"`
	BuyVsSellDays float64 `json:"s5_buy_vs_sell_days"`
	Absorption    float64 `json:"s6_absorption"`
	VolumeDecline float64 `json:"s7_volume_decline"`
	Divergence    float64 `json:"s8_divergence"`
}

// CappedDay records a day whose delta was clamped by winsorization
type CappedDay struct {
	Date     time.Time `json:"date"`
	Original float64   `json:"original"`
	Capped   float64   `json:"capped"`
}

// WeekSummary is the per-week breakdown attached to a zone, built from winsorized deltas
type WeekSummary struct {
	WeekStart   time.Time `json:"week_start"`
	Days        int       `json:"days"`
	Delta       float64   `json:"delta"`
	TotalVolume int64     `json:"total_volume"`
	DeltaPct    float64   `json:"delta_pct"`
	Close       float64   `json:"close"`
}

// WindowScore is the record produced for a window that passed every gate
type WindowScore struct {
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`

	Score              float64 `json:"score"`
	RawScore           float64 `json:"raw_score"`
	DurationMultiplier float64 `json:"duration_multiplier"`
	ConcordancePenalty float64 `json:"concordance_penalty"`
	Detected           bool    `json:"detected"`

	// Gate diagnostics
	OverallPriceChange float64 `json:"overall_price_change"`
	NetDeltaPct        float64 `json:"net_delta_pct"`
	DeltaSlopeNorm     float64 `json:"delta_slope_norm"`

	// Supporting metrics
	PriceDeltaCorr  float64 `json:"price_delta_corr"`
	AccumWeeks      int     `json:"accum_weeks"`
	AbsorptionPct   float64 `json:"absorption_pct"`
	LargeBuyVsSell  float64 `json:"large_buy_vs_sell"`
	VolDeclineScore float64 `json:"vol_decline_score"`

	Components Components    `json:"components"`
	CappedDays []CappedDay   `json:"capped_days"`
	Weeks      []WeekSummary `json:"weeks"`
}

// AccumulationZone is a detected window accepted by the zone discoverer
type AccumulationZone struct {
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	WindowDays  int       `json:"window_days"`
	WindowWeeks int       `json:"window_weeks"`
	WindowScore
}

// ClusterKind distinguishes the two rolling-window counter patterns
type ClusterKind string

const (
	ClusterDistribution          ClusterKind = "distribution"
	ClusterAccumulationInDecline ClusterKind = "accumulation_in_decline"
)

// DistributionCluster is a merged run of qualifying 10-day windows
type DistributionCluster struct {
	Kind        ClusterKind `json:"kind"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	StartIndex  int         `json:"start_index"`
	EndIndex    int         `json:"end_index"`
	WindowCount int         `json:"window_count"`

	// Extremes observed across constituent windows
	PeakPriceChangePct float64 `json:"peak_price_change_pct"`
	PeakDeltaPct       float64 `json:"peak_delta_pct"`

	// Recomputed over the merged span
	PriceChangePct float64 `json:"price_change_pct"`
	NetDeltaPct    float64 `json:"net_delta_pct"`
}

// Durability classifies whether buying persisted after a breakout
type Durability string

const (
	DurabilityDurable      Durability = "DURABLE"
	DurabilityFragile      Durability = "FRAGILE"
	DurabilityMixed        Durability = "MIXED"
	DurabilityInsufficient Durability = "INSUFFICIENT_DATA"
)

// DeltaPolarity describes net flow during the breakout run
type DeltaPolarity string

const (
	PolarityConfirmed    DeltaPolarity = "confirmed"
	PolarityDistribution DeltaPolarity = "distribution_into_rally"
	PolarityNeutral      DeltaPolarity = "neutral"
)

// Breakout is an abrupt volume-confirmed price advance
type Breakout struct {
	Index          int           `json:"index"`
	Date           time.Time     `json:"date"`
	StartIndex     int           `json:"start_index"`
	StartDate      time.Time     `json:"start_date"`
	PriceChangePct float64       `json:"price_change_pct"`
	VolumeRatio    float64       `json:"volume_ratio"`
	PriceStart     float64       `json:"price_start"`
	PriceEnd       float64       `json:"price_end"`
	DeltaPct       float64       `json:"delta_pct"`
	Polarity       DeltaPolarity `json:"polarity"`
	PositiveWeeks  int           `json:"positive_weeks"`
	Durability     Durability    `json:"durability"`

	Proximity ProximitySignal `json:"proximity"`
}

// ProximityLevel is the categorical readiness of a pre-breakout period
type ProximityLevel string

const (
	ProximityNone         ProximityLevel = "NONE"
	ProximityElevated     ProximityLevel = "ELEVATED"
	ProximityHigh         ProximityLevel = "HIGH"
	ProximityImminent     ProximityLevel = "IMMINENT"
	ProximityInsufficient ProximityLevel = "INSUFFICIENT_DATA"
)

// ProximityDetail is one triggered precursor signal
type ProximityDetail struct {
	Signal string    `json:"signal"`
	Date   time.Time `json:"date"`
	Detail string    `json:"detail"`
	Points int       `json:"points"`
}

// ProximitySignal aggregates precursor signals before a breakout
type ProximitySignal struct {
	Details []ProximityDetail `json:"details"`
	Points  int               `json:"points"`
	Level   ProximityLevel    `json:"level"`
}

// EventKind enumerates timeline entries
type EventKind string

const (
	EventZoneStart          EventKind = "zone_start"
	EventZoneEnd            EventKind = "zone_end"
	EventBreakout           EventKind = "breakout"
	EventDistributionStart  EventKind = "distribution_start"
	EventDistributionEnd    EventKind = "distribution_end"
	EventDeclineAbsorbStart EventKind = "decline_absorption_start"
	EventDeclineAbsorbEnd   EventKind = "decline_absorption_end"
)

// TimelineEvent is one entry of the merged narrative
type TimelineEvent struct {
	Date   time.Time `json:"date"`
	Kind   EventKind `json:"kind"`
	Action string    `json:"action"`
	Note   string    `json:"note"`
}

// AnalysisResult bundles everything the engine derives for one instrument
type AnalysisResult struct {
	Ticker                string                `json:"ticker"`
	Days                  int                   `json:"days"`
	PreContextDays        int                   `json:"pre_context_days"`
	Zones                 []AccumulationZone    `json:"zones"`
	Distribution          []DistributionCluster `json:"distribution"`
	AccumulationInDecline []DistributionCluster `json:"accumulation_in_decline"`
	Breakouts             []Breakout            `json:"breakouts"`
	Timeline              []TimelineEvent       `json:"timeline"`
}
