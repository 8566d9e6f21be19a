package fetcher

import (
	"context"

	"vantage.ai/dashboard-cache-engine/app/domain/common"
)

// ResourceDescriptor names one fetchable dashboard resource.
type ResourceDescriptor struct {
	DataType   string
	ScopeID    string
	SubScopeID string
	Qualifier  string
	Params     map[string]string
}

// Result is the collaborator's answer. A transport-level failure is reported
// through the returned error; an application-level failure arrives as
// Success=false with a populated Error.
type Result struct {
	Success bool          `json:"success"`
	Data    any           `json:"data"`
	Error   *common.Error `json:"error,omitempty"`
}

// Fetcher is the external data fetch collaborator used by the refresh
// orchestrator, the warming engine and lazy-load consumers. Its transport is
// out of scope here.
type Fetcher interface {
	Fetch(ctx context.Context, rd ResourceDescriptor) (Result, error)
}
