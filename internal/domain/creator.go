package domain

// CreatorMethod tags the tier that produced a creator attribution.
type CreatorMethod string

const (
	MethodAPI        CreatorMethod = "api"
	MethodStructured CreatorMethod = "structured"
	MethodHeuristic  CreatorMethod = "heuristic"
)

type CreatorResult struct {
	Name        string        `json:"name"`
	ExternalID  string        `json:"external_id"`
	ProfileURL  *string       `json:"profile_url"`
	Image       *string       `json:"image"`
	Description *string       `json:"description"`
	Confidence  float64       `json:"confidence"`
	Method      CreatorMethod `json:"method"`
}
