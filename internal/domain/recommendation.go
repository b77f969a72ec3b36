package domain

// Recommendation sources, reported back so clients can label result sections.
const (
	RecommendSourceKeyword = "keyword"
	RecommendSourceSimilar = "similar"
	RecommendSourceHistory = "history"
	RecommendSourceHot     = "hot"
)

// Recommendation is one ranked tool together with the source that produced it.
type Recommendation struct {
	Tool   Tool   `json:"tool"`
	Source string `json:"source"`
}
