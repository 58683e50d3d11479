package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/msdbook/msdsim/pkg/models"
	"github.com/msdbook/msdsim/pkg/utils"
)

// Collector collects step-indexed series during a simulation
type Collector struct {
	mu sync.RWMutex

	// Series data: metric name -> labels -> []MetricPoint
	series map[string]map[string][]*models.MetricPoint

	// Aggregated data: metric name -> labels -> Aggregation
	aggregations map[string]map[string]*models.Aggregation
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		series:       make(map[string]map[string][]*models.MetricPoint),
		aggregations: make(map[string]map[string]*models.Aggregation),
	}
}

// Record records a metric value at a time step
func (c *Collector) Record(name string, step int, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.series[name] == nil {
		c.series[name] = make(map[string][]*models.MetricPoint)
	}

	point := &models.MetricPoint{
		Step:   step,
		Name:   name,
		Value:  value,
		Labels: copyLabels(labels),
	}
	c.series[name][key] = append(c.series[name][key], point)

	// cached aggregation is stale now
	if c.aggregations[name] != nil {
		delete(c.aggregations[name], key)
	}
}

// GetSeries returns the points of a metric for one label set in record order
func (c *Collector) GetSeries(name string, labels map[string]string) []*models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.getPointsUnsafe(name, labelKey(labels))
	if points == nil {
		return nil
	}

	result := make([]*models.MetricPoint, len(points))
	for i, p := range points {
		result[i] = &models.MetricPoint{
			Step:   p.Step,
			Name:   p.Name,
			Value:  p.Value,
			Labels: copyLabels(p.Labels),
		}
	}
	return result
}

// GetOrComputeAggregation gets cached aggregation or computes it
func (c *Collector) GetOrComputeAggregation(name string, labels map[string]string) *models.Aggregation {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.aggregations[name] == nil {
		c.aggregations[name] = make(map[string]*models.Aggregation)
	}

	if agg, ok := c.aggregations[name][key]; ok {
		return agg
	}

	points := c.getPointsUnsafe(name, key)
	if len(points) == 0 {
		return nil
	}

	agg := calculateAggregation(points)
	c.aggregations[name][key] = agg
	return agg
}

// GetMetricNames returns all metric names that have been collected, sorted
func (c *Collector) GetMetricNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetLabelsForMetric returns all label combinations for a metric
func (c *Collector) GetLabelsForMetric(name string) []map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.series[name] == nil {
		return nil
	}

	keys := make([]string, 0, len(c.series[name]))
	for k := range c.series[name] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	labelsList := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		if points := c.series[name][k]; len(points) > 0 {
			labelsList = append(labelsList, copyLabels(points[0].Labels))
		}
	}
	return labelsList
}

// Len returns the total number of recorded points
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, labelMap := range c.series {
		for _, points := range labelMap {
			n += len(points)
		}
	}
	return n
}

// getPointsUnsafe returns points without locking (caller must hold lock)
func (c *Collector) getPointsUnsafe(name, key string) []*models.MetricPoint {
	if c.series[name] == nil {
		return nil
	}
	return c.series[name][key]
}

// labelKey creates a key from labels for map lookup
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

// copyLabels creates a copy of the labels map
func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// calculateAggregation calculates aggregated statistics from metric points
func calculateAggregation(points []*models.MetricPoint) *models.Aggregation {
	if len(points) == 0 {
		return nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	sort.Float64s(values)

	sum := utils.Sum(values)
	return &models.Aggregation{
		Count:  int64(len(values)),
		Sum:    sum,
		Min:    values[0],
		Max:    values[len(values)-1],
		Mean:   sum / float64(len(values)),
		StdDev: utils.StdDev(values),
		P01:    utils.Percentile(values, 1),
		P50:    utils.Percentile(values, 50),
		P95:    utils.Percentile(values, 95),
		P99:    utils.Percentile(values, 99),
	}
}
