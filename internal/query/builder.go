// Package query builds the list and detail URLs accepted by the reiki
// search API.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JakeFAU/jorei-crawler/internal/jorei"
)

// DefaultBaseURL is the select endpoint of the public jorei database.
const DefaultBaseURL = "https://jorei.slis.doshisha.ac.jp/api/reiki/select"

// unboundedSentinel renders a missing range bound.
const unboundedSentinel = "*"

// facetFields are requested on every list query; the API rejects list
// queries without them.
var facetFields = []string{"municipality_type", "city", "type", "h_type", "municipality_id"}

// Builder renders query URLs against a base endpoint.
type Builder struct {
	base string
}

// NewBuilder returns a Builder for baseURL, or DefaultBaseURL when empty.
func NewBuilder(baseURL string) (*Builder, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	u.RawQuery = ""
	return &Builder{base: u.String()}, nil
}

// Offset is the record offset of a page.
func Offset(page, pageSize int) int {
	return page * pageSize
}

// List renders the paginated search URL for page of size pageSize.
func (b *Builder) List(r jorei.DateRange, page, pageSize int) string {
	v := url.Values{}
	v.Set("q", searchTerm(r))
	v.Set("start", strconv.Itoa(Offset(page, pageSize)))
	v.Set("rows", strconv.Itoa(pageSize))
	v.Set("fq", "")
	v.Set("facet", "true")
	v["facet.field"] = append([]string(nil), facetFields...)
	v.Set("facet.mincount", "1")
	v.Set("facet.range", "announcement_date")
	v.Set("facet.range.gap", "+1YEAR")
	v.Set("facet.range.start", "1883-01-01T00:00:00Z")
	v.Set("facet.range.end", "NOW")
	v.Set("f.municipality_id.facet.limit", "1788")
	return b.base + "?" + v.Encode()
}

// Detail renders the URL selecting the single record id with all fields.
func (b *Builder) Detail(id string) string {
	v := url.Values{}
	v.Set("q", "ids:"+id)
	v.Set("all", "true")
	return b.base + "?" + v.Encode()
}

// searchTerm always carries the announcement_date clause; [* TO *] still
// excludes records without an announcement date.
func searchTerm(r jorei.DateRange) string {
	return fmt.Sprintf("collection:latest AND announcement_date:[%s TO %s]", renderBound(r.Start), renderBound(r.End))
}

func renderBound(d *jorei.Date) string {
	if d == nil {
		return unboundedSentinel
	}
	return fmt.Sprintf("%04d", d.Year)
}
