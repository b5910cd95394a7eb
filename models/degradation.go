package models

// Method tags which path produced a retrieval or answer outcome.
type Method string

const (
	MethodEmbedding  Method = "embedding"
	MethodFallback   Method = "fallback"
	MethodGenerated  Method = "generated"
	MethodExtractive Method = "extractive"
)

// DegradeReason explains why a fallback path ran.
type DegradeReason string

const (
	ReasonUpstreamError     DegradeReason = "upstream_error"
	ReasonTimeout           DegradeReason = "timeout"
	ReasonCircuitOpen       DegradeReason = "circuit_open"
	ReasonDimensionMismatch DegradeReason = "dimension_mismatch"
	ReasonNoEmbeddings      DegradeReason = "no_embeddings"
	ReasonNoGenerator       DegradeReason = "no_generator"
	ReasonEmptyResponse     DegradeReason = "empty_response"
)

// Degradation records that an operation fell back from its primary path.
// A nil *Degradation means the primary path succeeded.
type Degradation struct {
	Reason DegradeReason `bson:"reason" json:"reason"`
	Detail string        `bson:"detail,omitempty" json:"detail,omitempty"`
}
