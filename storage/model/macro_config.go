package model

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// MacroConfig holds the trusted configuration of one signature macro as it
// was pushed by the host platform. The value is kept verbatim (it may be in a
// historical shape); it is normalized when it is loaded.
type MacroConfig struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	PageID  string `gorm:"primaryKey;size:255" json:"pageId"`
	MacroID string `gorm:"primaryKey;size:255" json:"macroId"`

	// Value is stored as native JSON/JSONB where supported and TEXT otherwise.
	Value datatypes.JSON `json:"value"`
}

// MacroConfigStore stores raw macro configurations
type MacroConfigStore interface {
	// Get returns the raw value for (pageID, macroID). Returns (nil, nil) if
	// not found.
	Get(ctx context.Context, pageID, macroID string) (datatypes.JSON, error)
	// Set stores/replaces the value for (pageID, macroID)
	Set(ctx context.Context, pageID, macroID string, value datatypes.JSON) error
	// Delete removes the entry for (pageID, macroID). No error if missing.
	Delete(ctx context.Context, pageID, macroID string) error
	// DeletePage removes all macro configurations of a page
	DeletePage(ctx context.Context, pageID string) (int64, error)
}
