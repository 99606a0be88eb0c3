package constants

const (
	AppName           = "habiter"
	DefaultConfigPath = "~/.config/habiter/config.yaml"
	DefaultDBPath     = "~/.config/habiter/habiter.db"
	Version           = "v0.2.0"

	// Option keys persisted in the options table. Keys are matched
	// case-insensitively by the options store.
	OptionSetupCompleted = "setup_completed"
	OptionLastSetup      = "last_setup"
)
