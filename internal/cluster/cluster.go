package cluster

import (
	"fmt"
	"math"
	"strings"
)

// DefaultThreshold is the default clustering radius in degrees (roughly
// 500m of latitude).
const DefaultThreshold = 0.005

// Located is anything with a position in degrees.
type Located interface {
	Coordinates() (lat, lng float64)
}

// Mode selects how an item is matched to existing clusters.
type Mode int

const (
	// ModeFirstMatch joins the first cluster, in creation order, whose
	// anchor is within the threshold.
	ModeFirstMatch Mode = iota
	// ModeNearest joins the cluster with the closest anchor within the
	// threshold; ties go to the earlier cluster.
	ModeNearest
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFirstMatch:
		return "first"
	case ModeNearest:
		return "nearest"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps "first" or "nearest" (case-insensitive) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first-match", "firstmatch":
		return ModeFirstMatch, nil
	case "nearest":
		return ModeNearest, nil
	default:
		return ModeFirstMatch, fmt.Errorf("unknown cluster mode %q", s)
	}
}

// Builder clusters items with a fixed threshold and mode.
type Builder struct {
	// Threshold is the exclusive distance limit in degrees.
	Threshold float64
	Mode      Mode
}

// NewBuilder returns a first-match Builder with the given threshold.
func NewBuilder(threshold float64) Builder {
	return Builder{Threshold: threshold, Mode: ModeFirstMatch}
}

// Build clusters items with a first-match Builder.
func Build[T Located](items []T, threshold float64) [][]T {
	return Cluster(NewBuilder(threshold), items)
}

// Cluster partitions items into clusters. Every item appears in exactly one
// cluster, clusters are ordered by creation and members keep input order.
// An empty input yields an empty, non-nil result.
func Cluster[T Located](b Builder, items []T) [][]T {
	clusters := make([][]T, 0)
	anchors := make([][2]float64, 0)

	for _, item := range items {
		lat, lng := item.Coordinates()

		idx := b.match(anchors, lat, lng)
		if idx < 0 {
			clusters = append(clusters, []T{item})
			anchors = append(anchors, [2]float64{lat, lng})
			continue
		}
		clusters[idx] = append(clusters[idx], item)
	}

	return clusters
}

// match returns the index of the cluster the point joins, or -1.
func (b Builder) match(anchors [][2]float64, lat, lng float64) int {
	best := -1
	bestDist := math.Inf(1)

	for i, a := range anchors {
		d := Distance(a[0], a[1], lat, lng)
		if !(d < b.Threshold) {
			continue
		}
		if b.Mode != ModeNearest {
			return i
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Distance is the Euclidean distance between two points in degree space.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	return math.Hypot(lat1-lat2, lng1-lng2)
}
