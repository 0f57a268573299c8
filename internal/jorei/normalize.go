package jorei

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingField is returned when a document lacks a field the persisted
// record requires.
var ErrMissingField = errors.New("required field missing")

// DetailFields are the keys a detail document must carry with a non-null
// value.
var DetailFields = []string{
	"municipality_id",
	"municipality_type",
	"area",
	"id",
	"reiki_id",
	"title",
	"type",
	"has_version",
}

// DecodeDoc decodes one raw document, failing with ErrMissingField when any
// of the required keys is absent or null.
func DecodeDoc(raw json.RawMessage, required ...string) (Doc, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return Doc{}, fmt.Errorf("decode doc: %w", err)
	}
	var missing []string
	for _, k := range required {
		v, ok := keys[k]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Doc{}, fmt.Errorf("%w: %v", ErrMissingField, missing)
	}
	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Doc{}, fmt.Errorf("decode doc: %w", err)
	}
	return doc, nil
}

// Normalize maps a raw document into the persisted Record shape.
func Normalize(doc Doc) (Record, error) {
	if doc.ID == "" {
		return Record{}, fmt.Errorf("%w: id", ErrMissingField)
	}
	if doc.FileType == nil {
		return Record{}, fmt.Errorf("%w: file_type (id %s)", ErrMissingField, doc.ID)
	}

	updated := make([]Date, 0, len(doc.UpdatedDate))
	for _, t := range doc.UpdatedDate {
		updated = append(updated, ToInternalDate(t))
	}

	return Record{
		Collection:        doc.Collection,
		CollectedDate:     doc.CollectedDate,
		UpdatedDate:       updated,
		MunicipalityID:    doc.MunicipalityID,
		Prefecture:        doc.Prefecture,
		City:              doc.City,
		PrefectureKana:    doc.PrefectureKana,
		CityKana:          doc.CityKana,
		MunicipalityType:  doc.MunicipalityType,
		Area:              doc.Area,
		ID:                doc.ID,
		ReikiID:           doc.ReikiID,
		H1:                doc.H1,
		Title:             doc.Title,
		AnnouncementDate:  toDatePtr(doc.AnnouncementDate),
		JoreiType:         doc.Type,
		LastUpdatedDate:   toDatePtr(doc.LastUpdatedDate),
		ReikiDates:        doc.ReikiDates,
		ReikiNumbers:      doc.ReikiNumbers,
		OriginalURL:       doc.OriginalURL,
		ReikiURL:          doc.ReikiURL,
		HasVersion:        doc.HasVersion,
		FileType:          *doc.FileType,
		HType:             doc.HType,
		Content:           doc.Content,
		CollectedDateS:    doc.CollectedDateS,
		AnnouncementDateS: doc.AnnouncementDateS,
		LastUpdatedDateS:  doc.LastUpdatedDateS,
		UpdatedDateS:      doc.UpdatedDateS,
	}, nil
}

// Summarize builds the index entry for a document.
func Summarize(doc Doc) IndexEntry {
	return IndexEntry{
		Title:            doc.Title,
		ReikiID:          doc.ReikiID,
		ID:               doc.ID,
		Prefecture:       doc.Prefecture,
		City:             doc.City,
		AnnouncementDate: toDatePtr(doc.AnnouncementDate),
		UpdatedDate:      toDatePtr(doc.LastUpdatedDate),
	}
}
