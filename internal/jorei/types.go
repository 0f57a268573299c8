// Package jorei defines the ordinance record types returned by the reiki
// search API and the normalized shapes persisted by the crawler.
package jorei

import (
	"encoding/json"
	"time"
)

// Envelope is the JSON wrapper shared by list and detail responses.
type Envelope struct {
	Response Response `json:"response"`
}

// Response carries one page of search results. Fields are pointers so a
// missing key can be told apart from a zero value; docs stay raw until
// DecodeDoc checks them.
type Response struct {
	NumFound *int              `json:"numFound"`
	Start    *int              `json:"start"`
	Docs     []json.RawMessage `json:"docs"`
}

// ListPage is the view of a list response the pagination driver needs.
type ListPage struct {
	Total int
	Docs  []Doc
}

// TotalCount returns the number of records matching the whole query.
func (p ListPage) TotalCount() int {
	return p.Total
}

// IDs returns the record identifiers on this page in API order.
func (p ListPage) IDs() []string {
	ids := make([]string, 0, len(p.Docs))
	for _, d := range p.Docs {
		ids = append(ids, d.ID)
	}
	return ids
}

// Doc is a raw record document as served by the API.
type Doc struct {
	Collection        []string    `json:"collection"`
	CollectedDate     []string    `json:"collected_date"`
	UpdatedDate       []time.Time `json:"updated_date"`
	MunicipalityID    string      `json:"municipality_id"`
	Prefecture        *string     `json:"prefecture"`
	City              *string     `json:"city"`
	PrefectureKana    *string     `json:"prefecture_kana"`
	CityKana          *string     `json:"city_kana"`
	MunicipalityType  string      `json:"municipality_type"`
	Area              string      `json:"area"`
	ID                string      `json:"id"`
	ReikiID           string      `json:"reiki_id"`
	H1                *string     `json:"h1"`
	Title             string      `json:"title"`
	AnnouncementDate  *time.Time  `json:"announcement_date"`
	Type              string      `json:"type"`
	LastUpdatedDate   *time.Time  `json:"last_updated_date"`
	ReikiDates        []string    `json:"reiki_dates"`
	ReikiNumbers      []string    `json:"reiki_numbers"`
	UpdateCount       *int        `json:"update_count"`
	OriginalURL       *string     `json:"original_url"`
	ReikiURL          *string     `json:"reiki_url"`
	HasVersion        bool        `json:"has_version"`
	FileType          *string     `json:"file_type"`
	HType             []string    `json:"h_type"`
	Content           *string     `json:"content"`
	CollectedDateS    *string     `json:"collected_date_s"`
	AnnouncementDateS *string     `json:"announcement_date_s"`
	LastUpdatedDateS  *string     `json:"last_updated_date_s"`
	UpdatedDateS      *string     `json:"updated_date_s"`
}

// Record is the normalized shape written to <id>.json.
type Record struct {
	Collection        []string `json:"collection"`
	CollectedDate     []string `json:"collected_date"`
	UpdatedDate       []Date   `json:"updated_date"`
	MunicipalityID    string   `json:"municipality_id"`
	Prefecture        *string  `json:"prefecture"`
	City              *string  `json:"city"`
	PrefectureKana    *string  `json:"prefecture_kana"`
	CityKana          *string  `json:"city_kana"`
	MunicipalityType  string   `json:"municipality_type"`
	Area              string   `json:"area"`
	ID                string   `json:"id"`
	ReikiID           string   `json:"reiki_id"`
	H1                *string  `json:"h1"`
	Title             string   `json:"title"`
	AnnouncementDate  *Date    `json:"announcement_date"`
	JoreiType         string   `json:"jorei_type"`
	LastUpdatedDate   *Date    `json:"last_updated_date"`
	ReikiDates        []string `json:"reiki_dates"`
	ReikiNumbers      []string `json:"reiki_numbers"`
	OriginalURL       *string  `json:"original_url"`
	ReikiURL          *string  `json:"reiki_url,omitempty"`
	HasVersion        bool     `json:"has_version"`
	FileType          string   `json:"file_type"`
	HType             []string `json:"h_type,omitempty"`
	Content           *string  `json:"content,omitempty"`
	CollectedDateS    *string  `json:"collected_date_s,omitempty"`
	AnnouncementDateS *string  `json:"announcement_date_s,omitempty"`
	LastUpdatedDateS  *string  `json:"last_updated_date_s,omitempty"`
	UpdatedDateS      *string  `json:"updated_date_s,omitempty"`
}

// IndexEntry is the one-line summary appended to the index per record.
type IndexEntry struct {
	Title            string  `json:"title"`
	ReikiID          string  `json:"reiki_id"`
	ID               string  `json:"id"`
	Prefecture       *string `json:"prefecture"`
	City             *string `json:"city"`
	AnnouncementDate *Date   `json:"announcement_date"`
	UpdatedDate      *Date   `json:"updated_date"`
}
