package config

import (
	"errors"
	"fmt"
	"time"
)

type (
	Config struct {
		Environment Environment `yaml:"environment"`
		Provider    string      `yaml:"provider"`
		Scope       Scope       `yaml:"scope"`
		Window      Window      `yaml:"window"`
		Fetch       Fetch       `yaml:"fetch"`
		Output      Output      `yaml:"output"`
		Metrics     []Metric    `yaml:"metrics"`

		IntervalMinutes int  `yaml:"interval_minutes"`
		IncludeCosts    bool `yaml:"include_costs"`
	}

	Environment struct {
		AWSRegion           string `yaml:"AWS_REGION"`
		DisableStdOutLogger bool   `yaml:"DISABLE_STDOUT_LOGGER"`
		Environment         string `yaml:"ENVIRONMENT"`
		Port                string `yaml:"PORT"`
		SentryDSN           string `yaml:"SENTRY_DSN" json:"-"`
	}

	Scope struct {
		ClusterNames []string `yaml:"cluster_names"`
	}

	Window struct {
		Days          int `yaml:"days"`
		PeriodSeconds int `yaml:"period_seconds"`
	}

	Fetch struct {
		Workers     int `yaml:"workers"`
		MaxPages    int `yaml:"max_pages"`
		MaxAttempts int `yaml:"max_attempts"`
		BaseDelayMS int `yaml:"base_delay_ms"`
		MaxDelayMS  int `yaml:"max_delay_ms"`
	}

	Output struct {
		Directory string `yaml:"directory"`
	}

	Metric struct {
		MetricName string   `yaml:"metric_name"`
		Statistics []string `yaml:"statistics"`
	}
)

const (
	defaultWindowDays    = 7
	defaultPeriodSeconds = 3600
	defaultWorkers       = 4
	defaultMaxPages      = 100
	defaultMaxAttempts   = 5
	defaultBaseDelayMS   = 200
	defaultMaxDelayMS    = 5000
)

// ApplyDefaults fills zero values with the worker's defaults, including the
// default MSK metric set when no metrics are configured.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "msk"
	}

	if c.Window.Days == 0 {
		c.Window.Days = defaultWindowDays
	}

	if c.Window.PeriodSeconds == 0 {
		c.Window.PeriodSeconds = defaultPeriodSeconds
	}

	if c.Fetch.Workers == 0 {
		c.Fetch.Workers = defaultWorkers
	}

	if c.Fetch.MaxPages == 0 {
		c.Fetch.MaxPages = defaultMaxPages
	}

	if c.Fetch.MaxAttempts == 0 {
		c.Fetch.MaxAttempts = defaultMaxAttempts
	}

	if c.Fetch.BaseDelayMS == 0 {
		c.Fetch.BaseDelayMS = defaultBaseDelayMS
	}

	if c.Fetch.MaxDelayMS == 0 {
		c.Fetch.MaxDelayMS = defaultMaxDelayMS
	}

	if len(c.Metrics) == 0 {
		c.Metrics = DefaultMetrics()
	}
}

func (c Config) Validate() error {
	if c.Provider != "msk" {
		return fmt.Errorf("invalid provider: %v (currently only 'msk' is supported)", c.Provider)
	}

	if c.Output.Directory == "" {
		return errors.New("must provide an output directory")
	}

	if c.Window.Days < 1 {
		return fmt.Errorf("invalid window days: %v", c.Window.Days)
	}

	if c.Window.PeriodSeconds < 60 || c.Window.PeriodSeconds%60 != 0 {
		return fmt.Errorf("invalid aggregation period: %v (must be a positive multiple of 60 seconds)", c.Window.PeriodSeconds)
	}

	if c.Fetch.Workers < 1 {
		return fmt.Errorf("invalid worker count: %v", c.Fetch.Workers)
	}

	if c.Fetch.MaxPages < 1 {
		return fmt.Errorf("invalid max pages: %v", c.Fetch.MaxPages)
	}

	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("invalid max attempts: %v", c.Fetch.MaxAttempts)
	}

	if c.Fetch.BaseDelayMS < 1 || c.Fetch.MaxDelayMS < c.Fetch.BaseDelayMS {
		return fmt.Errorf("invalid backoff delays: base %vms, max %vms", c.Fetch.BaseDelayMS, c.Fetch.MaxDelayMS)
	}

	if c.IntervalMinutes < 0 {
		return fmt.Errorf("invalid interval minutes: %v", c.IntervalMinutes)
	}

	if len(c.Metrics) == 0 {
		return errors.New("must provide at least one metric")
	}

	visitedMetricNames := make(map[string]bool)
	for _, metric := range c.Metrics {
		if metric.MetricName == "" {
			return errors.New("missing metric name")
		}

		if _, ok := MetricModel[metric.MetricName]; !ok {
			return fmt.Errorf("invalid metric name: %v", metric.MetricName)
		}

		if visitedMetricNames[metric.MetricName] {
			return fmt.Errorf("duplicate metric name: %v", metric.MetricName)
		} else {
			visitedMetricNames[metric.MetricName] = true
		}

		if len(metric.Statistics) == 0 {
			return fmt.Errorf("must provide at least one statistic for metric: %v", metric.MetricName)
		}

		visitedStatistics := make(map[string]bool)
		for _, statistic := range metric.Statistics {
			if statistic != "Average" && statistic != "Maximum" {
				return fmt.Errorf("invalid statistic %v for metric: %v", statistic, metric.MetricName)
			}

			if visitedStatistics[statistic] {
				return fmt.Errorf("duplicate statistic %v for metric: %v", statistic, metric.MetricName)
			}

			visitedStatistics[statistic] = true
		}
	}

	visitedClusterNames := make(map[string]bool)
	for _, name := range c.Scope.ClusterNames {
		if name == "" {
			return errors.New("empty cluster name in scope")
		}

		if visitedClusterNames[name] {
			return fmt.Errorf("duplicate cluster name in scope: %v", name)
		}

		visitedClusterNames[name] = true
	}

	return nil
}

func (c Config) WindowDuration() time.Duration {
	return time.Duration(c.Window.Days) * 24 * time.Hour
}

func (c Config) AggregationPeriod() time.Duration {
	return time.Duration(c.Window.PeriodSeconds) * time.Second
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// InScope reports whether a discovered cluster name is covered by the
// configured scope. An empty scope covers every cluster.
func (c Config) InScope(clusterName string) bool {
	if len(c.Scope.ClusterNames) == 0 {
		return true
	}

	for _, name := range c.Scope.ClusterNames {
		if name == clusterName {
			return true
		}
	}

	return false
}
