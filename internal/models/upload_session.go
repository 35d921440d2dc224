package models

import (
	"time"
)

// SessionStatus is the lifecycle state of an UploadSession.
// Forward order: initiated/authorized -> uploaded -> processing -> ready.
// Any state may move sideways into error.
type SessionStatus string

const (
	SessionInitiated  SessionStatus = "initiated"
	SessionAuthorized SessionStatus = "authorized"
	SessionUploaded   SessionStatus = "uploaded"
	SessionProcessing SessionStatus = "processing"
	SessionReady      SessionStatus = "ready"
	SessionError      SessionStatus = "error"
)

// ValidSessionStatus reports whether s is a known session status value.
func ValidSessionStatus(s SessionStatus) bool {
	switch s {
	case SessionInitiated, SessionAuthorized, SessionUploaded,
		SessionProcessing, SessionReady, SessionError:
		return true
	}
	return false
}

type UploadSession struct {
	ID          string        `json:"id" gorm:"primaryKey"` // UPLD_...
	DatastoreID string        `json:"datastoreId" gorm:"index;not null"`
	Tags        StringList    `json:"tags" gorm:"type:text"`
	Status      SessionStatus `json:"status" gorm:"not null;default:authorized"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}
