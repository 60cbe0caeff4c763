package bucket

import (
	"net/url"
	"path"
	"time"

	"github.com/dmitrijs2005/aikea/internal/bucket/parser"
	"github.com/dmitrijs2005/aikea/internal/common"
)

// FilteredRecordID is the ID of the synthetic record returned by ListAll
// when the bucket appears to block this host.
const FilteredRecordID = "ip-filtered-info"

// StoredFileRecord is one object known to the storage backend. Records are
// values: operations return fresh copies and never cache query results.
type StoredFileRecord struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"externalId,omitempty"`
	Name         string    `json:"name,omitempty"`
	URL          string    `json:"url,omitempty"`
	Tag1         string    `json:"tag1,omitempty"`
	Tag2         string    `json:"tag2,omitempty"`
	Tag3         string    `json:"tag3,omitempty"`
	MimeCategory string    `json:"mimeCategory,omitempty"`
	SizeBytes    int64     `json:"sizeBytes"`
	Description  string    `json:"description,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt,omitzero"`

	// Set only on the synthetic diagnostic record.
	Status   string `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
	Solution string `json:"solution,omitempty"`
}

// IsDiagnostic reports whether r is a placeholder describing a failure
// rather than a stored object.
func (r StoredFileRecord) IsDiagnostic() bool {
	return r.Status == common.StatusIPFiltered
}

// FilteredRecord builds the placeholder returned when every transport was
// refused. The 403 heuristic cannot tell IP filtering from other upstream
// rules, so the message says "appears".
func FilteredRecord() StoredFileRecord {
	return StoredFileRecord{
		ID:           FilteredRecordID,
		Name:         "[INFO] External bucket access blocked",
		MimeCategory: "info",
		Status:       common.StatusIPFiltered,
		Message:      "The external bucket appears to filter this server's IP address: requests are refused with 403 even without credentials.",
		Solution:     "Ask the bucket administrator to allow-list the server's egress IP, or route bucket traffic through an allowed proxy.",
	}
}

// recordFromEntry projects a parsed entry onto a record. ok is false when
// no ID can be derived from the entry's id, idExterne or url.
func recordFromEntry(e parser.Entry) (StoredFileRecord, bool) {
	r := StoredFileRecord{
		ID:           e.ID,
		ExternalID:   e.ExternalID,
		URL:          e.URL,
		Tag1:         e.Tag1,
		Tag2:         e.Tag2,
		Tag3:         e.Tag3,
		Description:  e.Description,
		SizeBytes:    e.Size,
		MimeCategory: common.DefaultMimeCategory,
		Name:         fileNameFromURL(e.URL),
	}
	if r.Name == "" {
		r.Name = e.ExternalID
	}
	if r.ID == "" {
		r.ID = e.ExternalID
	}
	if r.ID == "" {
		r.ID = r.Name
	}
	return r, r.ID != ""
}

func fileNameFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
