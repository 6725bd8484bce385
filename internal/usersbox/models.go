package usersbox

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const StatusSuccess = "success"

type AppInfoResponse struct {
	Status string  `json:"status"`
	Data   AppInfo `json:"data"`
}

type AppInfo struct {
	Title    string          `json:"title"`
	Balance  decimal.Decimal `json:"balance"`
	IsActive bool            `json:"is_active"`
}

type SourcesResponse struct {
	Status string      `json:"status"`
	Data   SourcesData `json:"data"`
}

type SourcesData struct {
	Count int      `json:"count"`
	Items []Source `json:"items"`
}

type Source struct {
	Title      string `json:"title"`
	Count      int64  `json:"count"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type ExplainResponse struct {
	Status string      `json:"status"`
	Data   ExplainData `json:"data"`
}

type ExplainData struct {
	Count int `json:"count"`
}

type SearchResponse struct {
	Status string     `json:"status"`
	Data   SearchData `json:"data"`
}

type SearchData struct {
	Count int            `json:"count"`
	Items []SourceResult `json:"items"`
}

type SourceResult struct {
	Source SourceRef `json:"source"`
	Hits   Hits      `json:"hits"`
}

type SourceRef struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type Hits struct {
	HitsCount int `json:"hitsCount"`
	// Items stay raw so renderers can walk fields in provider order.
	Items []json.RawMessage `json:"items"`
}
