package client

// Record is a normalized judgment record as served by /api/v1/records.
type Record struct {
	Identifier      string   `json:"identifier"`
	Title           string   `json:"title"`
	Text            string   `json:"text"`
	URL             string   `json:"url"`
	Date            *string  `json:"date"`
	RespondentState string   `json:"respondent_state"`
	ImportanceLevel string   `json:"importance_level"`
	Articles        []string `json:"articles"`
	SeparateOpinion string   `json:"separate_opinion"`
	Keywords        []string `json:"keywords"`
	RelatedCases    []string `json:"related_cases"`
	Outcome         string   `json:"outcome"`
	Violations      []string `json:"violations,omitempty"`
	NoViolations    []string `json:"no_violations,omitempty"`
	LawSection      string   `json:"law_section"`
}

// RecordFilter narrows a record listing.  Zero values do not filter.
type RecordFilter struct {
	RespondentState string
	Outcome         string
	Year            int
	Limit           int
	Offset          int
}

// RecordPage is one page of records.  Total is the number of stored records,
// or -1 when the server did not report it.
type RecordPage struct {
	Records []Record `json:"records"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	Total   int64    `json:"-"`
}

// SearchQuery is a full-text query.  At least Text or one filter must be
// set; Limit may not exceed 100.
type SearchQuery struct {
	Text            string
	RespondentState string
	Outcome         string
	Year            int
	Article         string
	Limit           int
	Offset          int
}

// SearchHit is one matching record with its relevance score and the
// highlighted fragments per field.
type SearchHit struct {
	Record     Record              `json:"record"`
	Score      float64             `json:"score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// SearchResult is one page of hits.  Total counts every match.
type SearchResult struct {
	Total int64       `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// GraphNode is a laid-out graph node.
type GraphNode struct {
	ID              string  `json:"id"`
	RespondentState string  `json:"respondent_state"`
	Year            int     `json:"year"`
	Title           string  `json:"title"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
}

// GraphEdge is an undirected weighted edge with its hover text.
type GraphEdge struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Weight  int    `json:"weight"`
	Tooltip string `json:"tooltip"`
}

// GraphStats counts what happened while the graph was built.
type GraphStats struct {
	Records              int  `json:"records"`
	NodesBuilt           int  `json:"nodes_built"`
	EdgesBuilt           int  `json:"edges_built"`
	UnresolvedReferences int  `json:"unresolved_references"`
	SelfReferences       int  `json:"self_references"`
	IsolatesRemoved      int  `json:"isolates_removed"`
	LowDegreeRemoved     int  `json:"low_degree_removed"`
	LayoutIterations     int  `json:"layout_iterations"`
	LayoutConverged      bool `json:"layout_converged"`
}

// Graph is the citation graph served by /api/v1/graph.  Source names the
// store that answered: "graph_store" or "exports".
type Graph struct {
	RunID  string      `json:"run_id,omitempty"`
	Nodes  []GraphNode `json:"nodes"`
	Edges  []GraphEdge `json:"edges"`
	Stats  GraphStats  `json:"stats"`
	Source string      `json:"-"`
}
