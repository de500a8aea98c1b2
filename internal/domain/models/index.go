package models

// IndexInfo names a market index and its Yahoo Finance ticker.
type IndexInfo struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// DefaultIndices is the index set processed when no series list is configured.
func DefaultIndices() []IndexInfo {
	return []IndexInfo{
		{Name: "SP500", Ticker: "^GSPC"},
		{Name: "NASDAQ", Ticker: "^IXIC"},
		{Name: "STOXX50", Ticker: "^STOXX50E"},
		{Name: "FTSE100", Ticker: "^FTSE"},
	}
}

// DefaultIndexNames returns the names of DefaultIndices in order.
func DefaultIndexNames() []string {
	idx := DefaultIndices()
	out := make([]string, len(idx))
	for i, x := range idx {
		out[i] = x.Name
	}
	return out
}
