package detect

// ContentAction is the closed set of responses to a detection result,
// ordered by increasing severity. A single decision never downgrades.
type ContentAction int

const (
	NoAction ContentAction = iota
	SelectiveBlur
	FullScreenBlur
	BlockAndWarn
	ImmediateClose
)

func (a ContentAction) String() string {
	switch a {
	case NoAction:
		return "NO_ACTION"
	case SelectiveBlur:
		return "SELECTIVE_BLUR"
	case FullScreenBlur:
		return "FULL_SCREEN_BLUR"
	case BlockAndWarn:
		return "BLOCK_AND_WARN"
	case ImmediateClose:
		return "IMMEDIATE_CLOSE"
	default:
		return "UNKNOWN"
	}
}

// WarningLevel grades the severity shown to the user.
type WarningLevel int

const (
	LevelNone WarningLevel = iota
	LevelLow
	LevelMedium
	LevelHigh
)

func (l WarningLevel) String() string {
	switch l {
	case LevelLow:
		return "LOW"
	case LevelMedium:
		return "MEDIUM"
	case LevelHigh:
		return "HIGH"
	default:
		return "NONE"
	}
}

// Thresholds are the decision-table knobs, supplied by the settings
// collaborator. Zero values fall back to the defaults.
type Thresholds struct {
	Coverage        float64 // full-screen blur at or above this coverage
	RegionCountFull int     // full-screen blur at or above this region count
	RegionCountWarn int     // block-and-warn region count floor
	WarnConfidence  float64 // block-and-warn confidence floor
}

// DefaultThresholds returns the configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Coverage:        0.4,
		RegionCountFull: 10,
		RegionCountWarn: 6,
		WarnConfidence:  0.6,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.Coverage <= 0 || t.Coverage > 1 {
		t.Coverage = d.Coverage
	}
	if t.RegionCountFull <= 0 {
		t.RegionCountFull = d.RegionCountFull
	}
	if t.RegionCountWarn <= 0 {
		t.RegionCountWarn = d.RegionCountWarn
	}
	if t.WarnConfidence <= 0 || t.WarnConfidence > 1 {
		t.WarnConfidence = d.WarnConfidence
	}
	return t
}

// Decision is the outcome of one decide call.
type Decision struct {
	Action   ContentAction
	Level    WarningLevel
	Coverage float64
}

// Density computes the per-frame density metric from a detection result.
// Regions are already consolidated, so their areas are summed directly.
func Density(res *DetectionResult, frameArea int) DensityMetric {
	if res == nil || frameArea <= 0 {
		return DensityMetric{}
	}
	sum := 0
	for _, r := range res.Regions {
		sum += rectArea(r.Rect)
	}
	return DensityMetric{
		Coverage:      clamp01(float64(sum) / float64(frameArea)),
		RegionCount:   len(res.Regions),
		MaxConfidence: res.MaxRegionConfidence,
	}
}

// Decide maps a detection result to an action via a strictly ordered
// threshold table, evaluated from most to least severe, first match wins.
// The table is monotonic: more coverage or more regions never yields a less
// severe outcome for the same confidence.
func Decide(res *DetectionResult, frameArea int, th Thresholds) Decision {
	th = th.withDefaults()
	d := Density(res, frameArea)

	switch {
	case d.Coverage >= th.Coverage || d.RegionCount >= th.RegionCountFull:
		return Decision{Action: FullScreenBlur, Level: LevelHigh, Coverage: d.Coverage}
	case d.RegionCount >= th.RegionCountWarn && d.MaxConfidence >= th.WarnConfidence:
		return Decision{Action: BlockAndWarn, Level: LevelHigh, Coverage: d.Coverage}
	case d.RegionCount >= 1 && d.MaxConfidence >= FlagThreshold:
		level := LevelLow
		if d.MaxConfidence >= th.WarnConfidence {
			level = LevelMedium
		}
		return Decision{Action: SelectiveBlur, Level: level, Coverage: d.Coverage}
	default:
		return Decision{Action: NoAction, Level: LevelNone, Coverage: d.Coverage}
	}
}
