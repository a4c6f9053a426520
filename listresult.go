package modelgraph

import "github.com/modelgraph/modelgraph/model"

// ListResult is the per-request container returned by list-object resolvers:
// an ordered window of records plus the total count of the filtered
// collection, exposed under a configurable results field name.
type ListResult struct {
	Results          []model.Instance
	Count            int
	ResultsFieldName string
}

// NewListResult returns a container with the default results field name.
func NewListResult(results []model.Instance, count int) *ListResult {
	return &ListResult{Results: results, Count: count, ResultsFieldName: DefaultResultsFieldName}
}

// DefaultResultsFieldName is the results field name used when a list type
// declares none.
const DefaultResultsFieldName = "results"
