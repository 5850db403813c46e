// Package api defines the wire contract of the files service.
package api

import "time"

// Request topics owned by the files service.
const (
	TopicSaveNewCaseFile = "files.save-new-case-file"
	TopicGetAllFiles     = "files.get-all-files"
	TopicGetFileByID     = "files.get-file-by-id"
	TopicDownloadFile    = "files.download-file"
	TopicUpdateCaseFile  = "files.update-case-file"
	TopicDeleteCaseFile  = "files.delete-case-file"
	TopicGetFilesForCase = "files.get-files-for-case"
	TopicSearchFiles     = "files.search-file-criteria"
)

// ClientRef is the denormalized client projection stored with a file.
type ClientRef struct {
	ID   string `cbor:"id" json:"id"`
	Name string `cbor:"name" json:"name"`
}

// CaseRef is the denormalized case projection stored with a file.
type CaseRef struct {
	ID     string `cbor:"id" json:"id"`
	Number string `cbor:"number" json:"number"`
	Title  string `cbor:"title" json:"title"`
}

// FileMetadata describes one stored case file. ObjectKey addresses the blob
// in the blob store and is never exposed through the gateway.
type FileMetadata struct {
	ID          string    `cbor:"id" json:"id"`
	FileName    string    `cbor:"fileName" json:"fileName"`
	ContentType string    `cbor:"contentType" json:"contentType"`
	Size        int64     `cbor:"size" json:"size"`
	ObjectKey   string    `cbor:"objectKey" json:"-"`
	UploadedBy  string    `cbor:"uploadedBy" json:"uploadedBy"`
	UploadedAt  time.Time `cbor:"uploadedAt" json:"uploadedAt"`
	Client      ClientRef `cbor:"client" json:"client"`
	Case        CaseRef   `cbor:"case" json:"case"`
}

// SaveFileRequest stores a new blob and its metadata for a case. Client and
// case are verified against their owning services before anything is
// written.
type SaveFileRequest struct {
	FileName    string `cbor:"fileName" json:"fileName"`
	ContentType string `cbor:"contentType" json:"contentType"`
	ClientID    string `cbor:"clientId" json:"clientId"`
	CaseID      string `cbor:"caseId" json:"caseId"`
	Content     []byte `cbor:"content" json:"content"`
}

// UpdateFileRequest replaces the blob and refreshes metadata for a file.
type UpdateFileRequest struct {
	FileID      string `cbor:"fileId" json:"fileId"`
	FileName    string `cbor:"fileName" json:"fileName"`
	ContentType string `cbor:"contentType" json:"contentType"`
	Content     []byte `cbor:"content" json:"content"`
}

// GetByIDRequest addresses a single record by id.
type GetByIDRequest struct {
	ID string `cbor:"id" json:"id"`
}

// GetForCaseRequest lists files that belong to one case.
type GetForCaseRequest struct {
	CaseID string `cbor:"caseId" json:"caseId"`
}

// SearchFilesRequest matches metadata by partial file name, client name or
// case number. Provided fields are combined with AND.
type SearchFilesRequest struct {
	FileName   string `cbor:"fileName,omitempty" json:"fileName,omitempty"`
	ClientName string `cbor:"clientName,omitempty" json:"clientName,omitempty"`
	CaseNumber string `cbor:"caseNumber,omitempty" json:"caseNumber,omitempty"`
}

// ListRequest pages through records.
type ListRequest struct {
	Page  int `cbor:"page" json:"page"`
	Limit int `cbor:"limit" json:"limit"`
}

// FilePage is one page of file metadata records.
type FilePage struct {
	Total int            `cbor:"total" json:"total"`
	Page  int            `cbor:"page" json:"page"`
	Limit int            `cbor:"limit" json:"limit"`
	Files []FileMetadata `cbor:"files" json:"files"`
}

// FileContent carries the blob bytes alongside the metadata needed to serve
// a download.
type FileContent struct {
	FileName    string `cbor:"fileName" json:"fileName"`
	ContentType string `cbor:"contentType" json:"contentType"`
	Content     []byte `cbor:"content" json:"content"`
}
