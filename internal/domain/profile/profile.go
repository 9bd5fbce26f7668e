// Package profile models the enforcement profile: the validated set of
// quality thresholds a gate's evidence must satisfy before approval.
// A profile is produced once by Validate and immutable thereafter.
package profile

import (
	"fmt"
	"strings"
)

// Metric names accepted in submitted evidence measurements.
const (
	MetricCoverageLines      = "coverage.lines"
	MetricCoverageBranches   = "coverage.branches"
	MetricCoverageFunctions  = "coverage.functions"
	MetricCoverageStatements = "coverage.statements"
	MetricLCPMillis          = "performance.lcp_ms"
	MetricTBTMillis          = "performance.tbt_ms"
	MetricA11yScore          = "accessibility.score"
	MetricSecurityCritical   = "security.critical"
	MetricSecurityHigh       = "security.high"
	MetricSecurityMedium     = "security.medium"
)

// CoverageBudget holds minimum coverage ratios in the range [0, 1]
type CoverageBudget struct {
	Lines      float64 `json:"lines" yaml:"lines"`
	Branches   float64 `json:"branches" yaml:"branches"`
	Functions  float64 `json:"functions" yaml:"functions"`
	Statements float64 `json:"statements" yaml:"statements"`
}

// PerformanceBudget holds maximum latency ceilings in milliseconds
type PerformanceBudget struct {
	MaxLCPMillis float64 `json:"max_lcp_ms" yaml:"max_lcp_ms"`
	MaxTBTMillis float64 `json:"max_tbt_ms" yaml:"max_tbt_ms"`
}

// AccessibilityTarget holds the minimum audit score and WCAG conformance
type AccessibilityTarget struct {
	MinScore    float64 `json:"min_score" yaml:"min_score"`
	WCAGLevel   string  `json:"wcag_level" yaml:"wcag_level"`
	WCAGVersion string  `json:"wcag_version" yaml:"wcag_version"`
}

// SecurityThresholds holds maximum tolerated finding counts per severity
type SecurityThresholds struct {
	MaxCritical float64 `json:"max_critical" yaml:"max_critical"`
	MaxHigh     float64 `json:"max_high" yaml:"max_high"`
	MaxMedium   float64 `json:"max_medium" yaml:"max_medium"`
}

// Profile is a validated enforcement profile snapshot
type Profile struct {
	Coverage      CoverageBudget      `json:"coverage" yaml:"coverage"`
	Performance   PerformanceBudget   `json:"performance" yaml:"performance"`
	Accessibility AccessibilityTarget `json:"accessibility" yaml:"accessibility"`
	Security      SecurityThresholds  `json:"security" yaml:"security"`
}

// Raw is the untyped configuration shape accepted from profile files.
// Nil sections and nil fields fall back to documented defaults.
type Raw struct {
	Coverage *struct {
		Lines      *float64 `yaml:"lines"`
		Branches   *float64 `yaml:"branches"`
		Functions  *float64 `yaml:"functions"`
		Statements *float64 `yaml:"statements"`
	} `yaml:"coverage"`
	Performance *struct {
		MaxLCPMillis *float64 `yaml:"max_lcp_ms"`
		MaxTBTMillis *float64 `yaml:"max_tbt_ms"`
	} `yaml:"performance"`
	Accessibility *struct {
		MinScore    *float64 `yaml:"min_score"`
		WCAGLevel   *string  `yaml:"wcag_level"`
		WCAGVersion *string  `yaml:"wcag_version"`
	} `yaml:"accessibility"`
	Security *struct {
		MaxCritical *float64 `yaml:"max_critical"`
		MaxHigh     *float64 `yaml:"max_high"`
		MaxMedium   *float64 `yaml:"max_medium"`
	} `yaml:"security"`
}

// Default returns the documented default profile:
// 95% coverage across the board, LCP 2500ms / TBT 300ms ceilings,
// accessibility score 0.90 at WCAG AA 2.2, zero critical/high findings.
func Default() Profile {
	return Profile{
		Coverage: CoverageBudget{
			Lines:      0.95,
			Branches:   0.95,
			Functions:  0.95,
			Statements: 0.95,
		},
		Performance: PerformanceBudget{
			MaxLCPMillis: 2500,
			MaxTBTMillis: 300,
		},
		Accessibility: AccessibilityTarget{
			MinScore:    0.90,
			WCAGLevel:   "AA",
			WCAGVersion: "2.2",
		},
		Security: SecurityThresholds{
			MaxCritical: 0,
			MaxHigh:     0,
			MaxMedium:   5,
		},
	}
}

// FieldViolation describes a single rejected configuration field
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError enumerates every violated field found in one pass,
// so callers get complete diagnostics instead of the first failure.
type ValidationError struct {
	Violations []FieldViolation
}

// Error returns a human-readable summary of all violations
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "invalid enforcement profile: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...interface{}) {
	e.Violations = append(e.Violations, FieldViolation{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// Validate fills unset fields with defaults and rejects out-of-range
// values. It is a pure function over its input; the returned profile is
// complete and immutable.
func Validate(raw Raw) (Profile, error) {
	p := Default()
	verr := &ValidationError{}

	if raw.Coverage != nil {
		setRatio := func(field string, dst *float64, src *float64) {
			if src == nil {
				return
			}
			if *src < 0 || *src > 1 {
				verr.add(field, "must be within [0, 1], got %g", *src)
				return
			}
			*dst = *src
		}
		setRatio("coverage.lines", &p.Coverage.Lines, raw.Coverage.Lines)
		setRatio("coverage.branches", &p.Coverage.Branches, raw.Coverage.Branches)
		setRatio("coverage.functions", &p.Coverage.Functions, raw.Coverage.Functions)
		setRatio("coverage.statements", &p.Coverage.Statements, raw.Coverage.Statements)
	}

	if raw.Performance != nil {
		setCeiling := func(field string, dst *float64, src *float64) {
			if src == nil {
				return
			}
			if *src <= 0 {
				verr.add(field, "must be positive, got %g", *src)
				return
			}
			*dst = *src
		}
		setCeiling("performance.max_lcp_ms", &p.Performance.MaxLCPMillis, raw.Performance.MaxLCPMillis)
		setCeiling("performance.max_tbt_ms", &p.Performance.MaxTBTMillis, raw.Performance.MaxTBTMillis)
	}

	if raw.Accessibility != nil {
		if s := raw.Accessibility.MinScore; s != nil {
			if *s < 0 || *s > 1 {
				verr.add("accessibility.min_score", "must be within [0, 1], got %g", *s)
			} else {
				p.Accessibility.MinScore = *s
			}
		}
		if l := raw.Accessibility.WCAGLevel; l != nil {
			switch *l {
			case "A", "AA", "AAA":
				p.Accessibility.WCAGLevel = *l
			default:
				verr.add("accessibility.wcag_level", "unknown WCAG level %q (expected A, AA or AAA)", *l)
			}
		}
		if v := raw.Accessibility.WCAGVersion; v != nil {
			switch *v {
			case "2.0", "2.1", "2.2":
				p.Accessibility.WCAGVersion = *v
			default:
				verr.add("accessibility.wcag_version", "unknown WCAG version %q (expected 2.0, 2.1 or 2.2)", *v)
			}
		}
	}

	if raw.Security != nil {
		setCount := func(field string, dst *float64, src *float64) {
			if src == nil {
				return
			}
			if *src < 0 {
				verr.add(field, "must not be negative, got %g", *src)
				return
			}
			*dst = *src
		}
		setCount("security.max_critical", &p.Security.MaxCritical, raw.Security.MaxCritical)
		setCount("security.max_high", &p.Security.MaxHigh, raw.Security.MaxHigh)
		setCount("security.max_medium", &p.Security.MaxMedium, raw.Security.MaxMedium)
	}

	if len(verr.Violations) > 0 {
		return Profile{}, verr
	}
	return p, nil
}

// Violation describes one submitted measurement that failed the profile
type Violation struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Limit  float64 `json:"limit"`
}

// String returns a human-readable description of the violation
func (v Violation) String() string {
	return fmt.Sprintf("%s=%g violates limit %g", v.Metric, v.Value, v.Limit)
}

// Evaluate checks submitted measurements against the profile and returns
// every failing metric. Only submitted metrics are checked: evidence with
// no measurement for a budget passes that budget vacuously. Metric names
// outside the known set are ignored as opaque extras.
func (p Profile) Evaluate(measurements map[string]float64) []Violation {
	var violations []Violation

	atLeast := func(name string, limit float64) {
		if value, ok := measurements[name]; ok && value < limit {
			violations = append(violations, Violation{Metric: name, Value: value, Limit: limit})
		}
	}
	atMost := func(name string, limit float64) {
		if value, ok := measurements[name]; ok && value > limit {
			violations = append(violations, Violation{Metric: name, Value: value, Limit: limit})
		}
	}

	atLeast(MetricCoverageLines, p.Coverage.Lines)
	atLeast(MetricCoverageBranches, p.Coverage.Branches)
	atLeast(MetricCoverageFunctions, p.Coverage.Functions)
	atLeast(MetricCoverageStatements, p.Coverage.Statements)
	atMost(MetricLCPMillis, p.Performance.MaxLCPMillis)
	atMost(MetricTBTMillis, p.Performance.MaxTBTMillis)
	atLeast(MetricA11yScore, p.Accessibility.MinScore)
	atMost(MetricSecurityCritical, p.Security.MaxCritical)
	atMost(MetricSecurityHigh, p.Security.MaxHigh)
	atMost(MetricSecurityMedium, p.Security.MaxMedium)

	return violations
}
