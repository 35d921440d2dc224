package models

import (
	"time"
)

// FileStatus is the lifecycle state of a File.
// Forward order: authorized -> processing -> ready; any state -> error.
type FileStatus string

const (
	FileAuthorized FileStatus = "authorized"
	FileProcessing FileStatus = "processing"
	FileReady      FileStatus = "ready"
	FileError      FileStatus = "error"
)

type File struct {
	ID              string     `json:"id" gorm:"primaryKey"` // FILE_...
	DatastoreID     string     `json:"datastoreId" gorm:"index;not null"`
	UploadSessionID string     `json:"uploadSessionId" gorm:"index"` // set-once link, may lag finalize
	Bucket          string     `json:"bucket" gorm:"not null"`
	ObjectKey       string     `json:"objectKey" gorm:"uniqueIndex;not null"` // idempotency key for finalize
	Filename        string     `json:"filename" gorm:"not null"`
	ContentType     string     `json:"contentType"`
	Size            int64      `json:"size"` // best-effort until finalize
	ChecksumMD5     string     `json:"checksumMd5,omitempty"`
	ChecksumCRC32C  string     `json:"checksumCrc32c,omitempty"`
	Status          FileStatus `json:"status" gorm:"not null;default:authorized"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}
