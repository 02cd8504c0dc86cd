package model

import (
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCandidateInvalid marks an enriched scenario candidate whose cross-field
// invariants fail. Synthesis drops such candidates and continues the batch.
var ErrCandidateInvalid = eris.New("enriched scenario candidate invalid")

// Urgency is the temporal urgency class of an enriched scenario.
type Urgency string

const (
	UrgencyImmediate  Urgency = "immediate"
	UrgencyShortTerm  Urgency = "short_term"
	UrgencyMediumTerm Urgency = "medium_term"
	UrgencyLongTerm   Urgency = "long_term"
)

// Confidence records how much trust the discovery stage places in a scenario.
type Confidence struct {
	SourceReliability   float64 `json:"source_reliability" yaml:"source_reliability"`
	CrossReferenceCount int     `json:"cross_reference_count" yaml:"cross_reference_count"`
	OverallConfidence   float64 `json:"overall_confidence" yaml:"overall_confidence"`
	Rationale           string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// TemporalContext records when a scenario should be acted on.
type TemporalContext struct {
	Urgency                 Urgency    `json:"urgency" yaml:"urgency"`
	TriggerDate             *time.Time `json:"trigger_date,omitempty" yaml:"trigger_date,omitempty"`
	OptimalActionWindowDays int        `json:"optimal_action_window_days,omitempty" yaml:"optimal_action_window_days,omitempty"`
	Rationale               string     `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Actionability scores how concretely an advisor can act on a scenario.
// CompositeScore is derived from the four dimension scores; it is never
// supplied by a source.
type Actionability struct {
	SpecificityScore  float64  `json:"specificity_score" yaml:"specificity_score"`
	UrgencyScore      float64  `json:"urgency_score" yaml:"urgency_score"`
	ImpactScore       float64  `json:"impact_score" yaml:"impact_score"`
	FeasibilityScore  float64  `json:"feasibility_score" yaml:"feasibility_score"`
	CompositeScore    float64  `json:"composite_score" yaml:"composite_score"`
	RecommendedAction string   `json:"recommended_action,omitempty" yaml:"recommended_action,omitempty"`
	TalkingPoints     []string `json:"talking_points,omitempty" yaml:"talking_points,omitempty"`
}

// Actionability composite weights.
const (
	actionabilitySpecificityWeight = 0.30
	actionabilityUrgencyWeight     = 0.25
	actionabilityImpactWeight      = 0.30
	actionabilityFeasibilityWeight = 0.15
)

// Composite computes the weighted actionability composite from the four
// dimension scores.
func (a Actionability) Composite() float64 {
	return a.SpecificityScore*actionabilitySpecificityWeight +
		a.UrgencyScore*actionabilityUrgencyWeight +
		a.ImpactScore*actionabilityImpactWeight +
		a.FeasibilityScore*actionabilityFeasibilityWeight
}

// Source identifies one discovery source that produced a scenario.
type Source struct {
	Name             string    `json:"source_name" yaml:"source_name"`
	Type             string    `json:"source_type" yaml:"source_type"`
	ReliabilityScore float64   `json:"reliability_score" yaml:"reliability_score"`
	RetrievedAt      time.Time `json:"retrieved_at" yaml:"retrieved_at"`
}

// EnrichedScenario is a Scenario discovered from one or more external
// sources, carrying confidence, timing, and actionability metadata.
// Immutable once constructed; the synthesizer produces new records rather
// than mutating existing ones.
type EnrichedScenario struct {
	Scenario        `yaml:",inline"`
	Confidence      Confidence      `json:"confidence" yaml:"confidence"`
	TemporalContext TemporalContext `json:"temporal_context" yaml:"temporal_context"`
	Actionability   Actionability   `json:"actionability" yaml:"actionability"`
	Sources         []Source        `json:"sources" yaml:"sources"`
}

// reliabilityTolerance bounds the allowed drift between the stated source
// reliability and the mean of the per-source reliability scores.
const reliabilityTolerance = 0.01

// Violations returns every cross-field invariant the candidate breaks.
// It is a pure function over the fully assembled candidate; construction
// succeeds only when the list is empty.
func (e *EnrichedScenario) Violations() []string {
	var v []string

	if len(e.Sources) == 0 {
		v = append(v, "at least one source is required")
	}

	c := e.Confidence
	if c.OverallConfidence < 0 || c.OverallConfidence > 1 {
		v = append(v, fmt.Sprintf("overall_confidence %.3f outside [0,1]", c.OverallConfidence))
	}
	if c.CrossReferenceCount == 0 && c.OverallConfidence > c.SourceReliability {
		v = append(v, fmt.Sprintf("overall_confidence %.3f exceeds source_reliability %.3f with no cross references", c.OverallConfidence, c.SourceReliability))
	}
	if c.CrossReferenceCount >= 3 && c.OverallConfidence < 0.6 {
		v = append(v, fmt.Sprintf("overall_confidence %.3f below 0.6 with %d cross references", c.OverallConfidence, c.CrossReferenceCount))
	}

	switch e.TemporalContext.Urgency {
	case UrgencyImmediate:
		if e.Actionability.UrgencyScore < 60 {
			v = append(v, fmt.Sprintf("immediate urgency but urgency_score %.1f below 60", e.Actionability.UrgencyScore))
		}
	case UrgencyLongTerm:
		if e.Actionability.UrgencyScore > 50 {
			v = append(v, fmt.Sprintf("long_term urgency but urgency_score %.1f above 50", e.Actionability.UrgencyScore))
		}
	case UrgencyShortTerm, UrgencyMediumTerm:
	default:
		v = append(v, fmt.Sprintf("unknown urgency %q", e.TemporalContext.Urgency))
	}

	if len(e.Sources) > 0 {
		var sum float64
		for _, s := range e.Sources {
			sum += s.ReliabilityScore
		}
		mean := sum / float64(len(e.Sources))
		if math.Abs(mean-c.SourceReliability) > reliabilityTolerance {
			v = append(v, fmt.Sprintf("source_reliability %.3f does not match source mean %.3f", c.SourceReliability, mean))
		}
	}

	return v
}

// NewEnrichedScenario validates a candidate and returns the constructed
// record with its actionability composite derived. Candidates that violate
// any cross-field invariant are rejected, not coerced.
func NewEnrichedScenario(candidate EnrichedScenario) (EnrichedScenario, error) {
	if err := candidate.Scenario.Validate(); err != nil {
		return EnrichedScenario{}, err
	}
	if violations := candidate.Violations(); len(violations) > 0 {
		return EnrichedScenario{}, eris.Wrapf(ErrCandidateInvalid, "scenario %s: %v", candidate.ID, violations)
	}
	candidate.Actionability.CompositeScore = candidate.Actionability.Composite()
	return candidate, nil
}
