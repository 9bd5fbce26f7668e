package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, 0.95, p.Coverage.Lines)
	assert.Equal(t, 0.95, p.Coverage.Branches)
	assert.Equal(t, 0.95, p.Coverage.Functions)
	assert.Equal(t, 0.95, p.Coverage.Statements)
	assert.Equal(t, 2500.0, p.Performance.MaxLCPMillis)
	assert.Equal(t, 300.0, p.Performance.MaxTBTMillis)
	assert.Equal(t, 0.90, p.Accessibility.MinScore)
	assert.Equal(t, "AA", p.Accessibility.WCAGLevel)
	assert.Equal(t, "2.2", p.Accessibility.WCAGVersion)
	assert.Equal(t, 0.0, p.Security.MaxCritical)
	assert.Equal(t, 0.0, p.Security.MaxHigh)
	assert.Equal(t, 5.0, p.Security.MaxMedium)
}

func TestValidate(t *testing.T) {
	t.Run("empty raw yields defaults", func(t *testing.T) {
		p, err := Validate(Raw{})
		require.NoError(t, err)
		assert.Equal(t, Default(), p)
	})

	t.Run("partial section keeps defaults for unset fields", func(t *testing.T) {
		raw := Raw{}
		raw.Coverage = &struct {
			Lines      *float64 `yaml:"lines"`
			Branches   *float64 `yaml:"branches"`
			Functions  *float64 `yaml:"functions"`
			Statements *float64 `yaml:"statements"`
		}{Lines: f(0.80)}

		p, err := Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, 0.80, p.Coverage.Lines)
		assert.Equal(t, 0.95, p.Coverage.Branches)
	})

	t.Run("all violations are collected in one pass", func(t *testing.T) {
		raw := Raw{}
		raw.Coverage = &struct {
			Lines      *float64 `yaml:"lines"`
			Branches   *float64 `yaml:"branches"`
			Functions  *float64 `yaml:"functions"`
			Statements *float64 `yaml:"statements"`
		}{Lines: f(1.5), Branches: f(-0.1)}
		raw.Performance = &struct {
			MaxLCPMillis *float64 `yaml:"max_lcp_ms"`
			MaxTBTMillis *float64 `yaml:"max_tbt_ms"`
		}{MaxLCPMillis: f(0)}
		raw.Accessibility = &struct {
			MinScore    *float64 `yaml:"min_score"`
			WCAGLevel   *string  `yaml:"wcag_level"`
			WCAGVersion *string  `yaml:"wcag_version"`
		}{WCAGLevel: s("AAAA"), WCAGVersion: s("3.0")}
		raw.Security = &struct {
			MaxCritical *float64 `yaml:"max_critical"`
			MaxHigh     *float64 `yaml:"max_high"`
			MaxMedium   *float64 `yaml:"max_medium"`
		}{MaxHigh: f(-1)}

		_, err := Validate(raw)
		require.Error(t, err)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)

		fields := make([]string, 0, len(verr.Violations))
		for _, v := range verr.Violations {
			fields = append(fields, v.Field)
		}
		assert.ElementsMatch(t, []string{
			"coverage.lines",
			"coverage.branches",
			"performance.max_lcp_ms",
			"accessibility.wcag_level",
			"accessibility.wcag_version",
			"security.max_high",
		}, fields)
	})

	t.Run("boundary values are accepted", func(t *testing.T) {
		raw := Raw{}
		raw.Coverage = &struct {
			Lines      *float64 `yaml:"lines"`
			Branches   *float64 `yaml:"branches"`
			Functions  *float64 `yaml:"functions"`
			Statements *float64 `yaml:"statements"`
		}{Lines: f(0), Branches: f(1)}
		raw.Security = &struct {
			MaxCritical *float64 `yaml:"max_critical"`
			MaxHigh     *float64 `yaml:"max_high"`
			MaxMedium   *float64 `yaml:"max_medium"`
		}{MaxCritical: f(0)}

		p, err := Validate(raw)
		require.NoError(t, err)
		assert.Equal(t, 0.0, p.Coverage.Lines)
		assert.Equal(t, 1.0, p.Coverage.Branches)
	})
}

func TestEvaluate(t *testing.T) {
	p := Default()

	t.Run("no measurements pass vacuously", func(t *testing.T) {
		assert.Empty(t, p.Evaluate(nil))
		assert.Empty(t, p.Evaluate(map[string]float64{}))
	})

	t.Run("passing measurements produce no violations", func(t *testing.T) {
		violations := p.Evaluate(map[string]float64{
			MetricCoverageLines:    0.97,
			MetricCoverageBranches: 0.95,
			MetricLCPMillis:        1800,
			MetricTBTMillis:        120,
			MetricA11yScore:        0.95,
			MetricSecurityCritical: 0,
			MetricSecurityMedium:   5,
		})
		assert.Empty(t, violations)
	})

	t.Run("failing coverage is reported", func(t *testing.T) {
		violations := p.Evaluate(map[string]float64{MetricCoverageLines: 0.80})
		require.Len(t, violations, 1)
		assert.Equal(t, MetricCoverageLines, violations[0].Metric)
		assert.Equal(t, 0.80, violations[0].Value)
		assert.Equal(t, 0.95, violations[0].Limit)
		assert.Equal(t, "coverage.lines=0.8 violates limit 0.95", violations[0].String())
	})

	t.Run("every failing metric is reported", func(t *testing.T) {
		violations := p.Evaluate(map[string]float64{
			MetricCoverageLines:    0.50,
			MetricLCPMillis:        4000,
			MetricSecurityCritical: 2,
		})
		assert.Len(t, violations, 3)
	})

	t.Run("unknown metric names are ignored", func(t *testing.T) {
		violations := p.Evaluate(map[string]float64{"custom.metric": -99})
		assert.Empty(t, violations)
	})
}
