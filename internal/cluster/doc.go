// Package cluster groups located items by geographic proximity.
//
// Clustering is a single greedy pass in input order. The first item of each
// cluster is its anchor and stays the comparison point for the cluster's
// lifetime; later members never move it. Distance is Euclidean in raw
// degree space, which is adequate at the neighbourhood scale the default
// threshold targets and distorts with latitude beyond that.
//
// The result depends on input order: callers that need reproducible
// clusters must present items in a stable order.
package cluster
