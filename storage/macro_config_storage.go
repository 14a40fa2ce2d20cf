package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sigvault/sigvault/storage/model"
)

// MacroConfigStorage implements model.MacroConfigStore using GORM
type MacroConfigStorage struct {
	db *gorm.DB
}

// Get returns the raw configuration of a macro. If not found, returns nil, nil.
func (s *MacroConfigStorage) Get(ctx context.Context, pageID, macroID string) (datatypes.JSON, error) {
	// Scan the raw bytes so JSON/JSONB columns work for every dialect.
	var raw []byte
	row := s.db.WithContext(ctx).Model(&model.MacroConfig{}).
		Select("value").
		Where("page_id = ? AND macro_id = ?", pageID, macroID).
		Row()
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "macro_configs: get failed")
	}
	if raw == nil {
		return nil, nil
	}
	return raw, nil
}

// Set upserts the raw configuration of a macro
func (s *MacroConfigStorage) Set(ctx context.Context, pageID, macroID string, value datatypes.JSON) error {
	mc := model.MacroConfig{
		PageID:  pageID,
		MacroID: macroID,
		Value:   value,
	}
	err := s.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{
				{Name: "page_id"},
				{Name: "macro_id"},
			},
			DoUpdates: clause.AssignmentColumns(
				[]string{
					"value",
					"updated_at",
				},
			),
		},
	).Create(&mc).Error
	return errors.Wrap(err, "macro_configs: set failed")
}

// Delete removes the configuration of a macro. No error if it's missing.
func (s *MacroConfigStorage) Delete(ctx context.Context, pageID, macroID string) error {
	err := s.db.WithContext(ctx).
		Where("page_id = ? AND macro_id = ?", pageID, macroID).
		Delete(&model.MacroConfig{}).Error
	return errors.Wrap(err, "macro_configs: delete failed")
}

// DeletePage removes the configurations of all macros on a page
func (s *MacroConfigStorage) DeletePage(ctx context.Context, pageID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("page_id = ?", pageID).Delete(&model.MacroConfig{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "macro_configs: delete page failed")
	}
	return res.RowsAffected, nil
}
