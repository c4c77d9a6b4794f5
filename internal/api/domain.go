package api

import (
	"github.com/JaimeStill/loom/internal/runs"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Runs runs.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	runsSystem := runs.New(
		runtime.Database.Connection(),
		runtime.Engine,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Runs: runsSystem,
	}
}
