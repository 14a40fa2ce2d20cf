package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sigvault/sigvault/fingerprint"
	"github.com/sigvault/sigvault/storage/model"
)

// SignatureStorage implements model.SignatureStore using GORM
type SignatureStorage struct {
	db  *gorm.DB
	now func() time.Time
}

// PutSignature creates the contract for fp (if it does not exist yet) and
// inserts the signature of accountID. The primary key on (contract_hash,
// account_id) is the only guard against concurrent duplicate signatures; a
// violation is reported as model.AlreadySignedError.
func (s *SignatureStorage) PutSignature(
	ctx context.Context, fp fingerprint.Fingerprint, pageID, accountID string,
) (*model.SignatureEntity, error) {
	if pageID == "" || accountID == "" {
		return nil, errors.New("signatures: page id and account id are required")
	}
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(
		func(tx *gorm.DB) error {
			contract := model.Contract{
				Hash:      fp.String(),
				PageID:    pageID,
				CreatedAt: now,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&contract).Error; err != nil {
				return errors.Wrap(err, "signatures: create contract failed")
			}
			sig := model.Signature{
				ContractHash: fp.String(),
				AccountID:    accountID,
				SignedAt:     now,
			}
			if err := tx.Create(&sig).Error; err != nil {
				if isUniqueConstraintError(err) {
					return model.AlreadySignedError{
						Hash:      fp.String(),
						AccountID: accountID,
					}
				}
				return errors.Wrap(err, "signatures: create signature failed")
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return s.GetSignature(ctx, fp)
}

// GetSignature returns the contract and signatures for fp, or nil if fp was
// never signed
func (s *SignatureStorage) GetSignature(ctx context.Context, fp fingerprint.Fingerprint) (
	*model.SignatureEntity, error,
) {
	db := s.db.WithContext(ctx)
	var contract model.Contract
	if err := db.Where("hash = ?", fp.String()).First(&contract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "signatures: get contract failed")
	}
	sigs := make([]model.Signature, 0)
	if err := db.Where("contract_hash = ?", contract.Hash).
		Order("signed_at ASC").Order("account_id ASC").
		Find(&sigs).Error; err != nil {
		return nil, errors.Wrap(err, "signatures: list signatures failed")
	}
	return &model.SignatureEntity{
		Contract:   contract,
		Signatures: sigs,
	}, nil
}

// SetDeleted marks all active contracts of pageID as deleted. Already deleted
// contracts keep their original timestamp.
func (s *SignatureStorage) SetDeleted(ctx context.Context, pageID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Contract{}).
		Where("page_id = ? AND deleted_at IS NULL", pageID).
		Update("deleted_at", s.now())
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "signatures: soft delete failed")
	}
	return res.RowsAffected, nil
}

// Restore clears the deletion mark of all soft-deleted contracts of pageID
func (s *SignatureStorage) Restore(ctx context.Context, pageID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Contract{}).
		Where("page_id = ? AND deleted_at IS NOT NULL", pageID).
		Update("deleted_at", nil)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "signatures: restore failed")
	}
	return res.RowsAffected, nil
}

// HardDelete permanently removes all contracts of pageID and their signatures
func (s *SignatureStorage) HardDelete(ctx context.Context, pageID string) (int64, error) {
	return s.purge(
		ctx, func(db *gorm.DB) *gorm.DB {
			return db.Where("page_id = ?", pageID)
		},
	)
}

// Cleanup permanently removes all contracts that were soft-deleted at least
// retentionDays ago
func (s *SignatureStorage) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 || retentionDays > model.MaxRetentionDays {
		return 0, errors.Errorf("signatures: invalid retention period of %d days", retentionDays)
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return s.purge(
		ctx, func(db *gorm.DB) *gorm.DB {
			return db.Where("deleted_at IS NOT NULL AND deleted_at <= ?", cutoff)
		},
	)
}

// purge deletes the contracts selected by scope, removing their signatures
// first in the same transaction so no orphaned signature is ever visible
func (s *SignatureStorage) purge(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(
		func(tx *gorm.DB) error {
			var hashes []string
			if err := scope(tx.Model(&model.Contract{})).Pluck("hash", &hashes).Error; err != nil {
				return errors.Wrap(err, "signatures: selecting contracts failed")
			}
			if len(hashes) == 0 {
				return nil
			}
			if err := tx.Where("contract_hash IN ?", hashes).Delete(&model.Signature{}).Error; err != nil {
				return errors.Wrap(err, "signatures: deleting signatures failed")
			}
			res := tx.Where("hash IN ?", hashes).Delete(&model.Contract{})
			if res.Error != nil {
				return errors.Wrap(res.Error, "signatures: deleting contracts failed")
			}
			removed = res.RowsAffected
			return nil
		},
	)
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ListByPage returns the contracts of pageID with their signature counts
func (s *SignatureStorage) ListByPage(ctx context.Context, pageID string) ([]model.ContractSummary, error) {
	summaries := make([]model.ContractSummary, 0)
	err := s.db.WithContext(ctx).Model(&model.Contract{}).
		Select(
			"contract.hash, contract.page_id, contract.created_at, contract.deleted_at, " +
				"COUNT(signature.account_id) AS signature_count",
		).
		Joins("LEFT JOIN signature ON signature.contract_hash = contract.hash").
		Where("contract.page_id = ?", pageID).
		Group("contract.hash, contract.page_id, contract.created_at, contract.deleted_at").
		Order("contract.created_at ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, errors.Wrap(err, "signatures: listing contracts failed")
	}
	return summaries, nil
}
