package model

import (
	"context"
	"time"

	"github.com/sigvault/sigvault/fingerprint"
)

// Contract ties a content fingerprint to the page it was created on and
// tracks the page's lifecycle. A Contract is created lazily together with its
// first Signature.
type Contract struct {
	Hash      string     `gorm:"primaryKey;size:64" json:"hash"`
	PageID    string     `gorm:"index;size:255;not null" json:"pageId"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `gorm:"index" json:"deletedAt"`

	Signatures []Signature `gorm:"foreignKey:ContractHash;references:Hash" json:"-"`
}

// TableName implements the gorm tabler interface
func (Contract) TableName() string {
	return "contract"
}

// IsDeleted reports whether the owning page has been trashed
func (c Contract) IsDeleted() bool {
	return c.DeletedAt != nil
}

// Signature is one account's approval of a Contract. Signatures are never
// updated; (ContractHash, AccountID) is the primary key.
type Signature struct {
	ContractHash string    `gorm:"primaryKey;size:64" json:"-"`
	AccountID    string    `gorm:"primaryKey;size:255" json:"accountId"`
	SignedAt     time.Time `gorm:"not null" json:"signedAt"`
}

// TableName implements the gorm tabler interface
func (Signature) TableName() string {
	return "signature"
}

// SignatureEntity aggregates a Contract and its signatures, ordered by
// signing time (oldest first)
type SignatureEntity struct {
	Contract   Contract    `json:"contract"`
	Signatures []Signature `json:"signatures"`
}

// Count returns the number of signatures
func (e *SignatureEntity) Count() int {
	if e == nil {
		return 0
	}
	return len(e.Signatures)
}

// HasSigned reports whether accountID already signed
func (e *SignatureEntity) HasSigned(accountID string) bool {
	if e == nil {
		return false
	}
	for _, s := range e.Signatures {
		if s.AccountID == accountID {
			return true
		}
	}
	return false
}

// ContractSummary is a Contract together with its number of signatures
type ContractSummary struct {
	Hash           string     `json:"hash"`
	PageID         string     `json:"pageId"`
	CreatedAt      time.Time  `json:"createdAt"`
	DeletedAt      *time.Time `json:"deletedAt"`
	SignatureCount int64      `json:"signatureCount"`
}

// MaxRetentionDays is the longest retention period Cleanup accepts
const MaxRetentionDays = 100 * 366

// SignatureStore persists contracts and their signatures
type SignatureStore interface {
	// PutSignature records a signature of accountID for fp, creating the
	// Contract if needed. If the account already signed, an
	// AlreadySignedError is returned and nothing is written.
	PutSignature(ctx context.Context, fp fingerprint.Fingerprint, pageID, accountID string) (*SignatureEntity, error)
	// GetSignature returns the SignatureEntity for fp or nil if fp was never
	// signed
	GetSignature(ctx context.Context, fp fingerprint.Fingerprint) (*SignatureEntity, error)
	// SetDeleted marks all active contracts of a page as deleted and returns
	// the number of newly marked contracts
	SetDeleted(ctx context.Context, pageID string) (int64, error)
	// Restore reactivates the soft-deleted contracts of a page
	Restore(ctx context.Context, pageID string) (int64, error)
	// HardDelete removes all contracts (and their signatures) of a page
	HardDelete(ctx context.Context, pageID string) (int64, error)
	// Cleanup removes contracts that were soft-deleted more than
	// retentionDays ago
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
	// ListByPage lists the contracts of a page
	ListByPage(ctx context.Context, pageID string) ([]ContractSummary, error)
}
