package model

// Backends groups all storage interfaces used by the application.
type Backends struct {
	Signatures   SignatureStore
	MacroConfigs MacroConfigStore
	Users        UsersStore
}
