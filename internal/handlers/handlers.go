package handlers

import (
	"photo-map/internal/indexer"
	"photo-map/internal/media"
)

// Index is the part of the indexer the HTTP layer depends on.
type Index interface {
	Clusters() [][]media.PhotoRecord
	LastResult() *indexer.Result
	Trigger() error
	IsReady() bool
	GetHealthStatus() indexer.HealthStatus
}

type Handlers struct {
	indexer Index
}

func New(idx Index) *Handlers {
	return &Handlers{indexer: idx}
}
