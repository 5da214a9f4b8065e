package source

import (
	"fmt"

	"github.com/tubechat/tubechat/pkg/config"
)

const (
	ProviderYTDLP = "ytdlp"
	ProviderFile  = "file"
)

// New builds the configured caption source.
func New(cfg *config.SourceConfig) (Source, error) {
	switch cfg.Provider {
	case ProviderYTDLP, "":
		return NewYTDLP(YTDLPOptions{
			Binary:      cfg.Binary,
			Languages:   cfg.Languages,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
		}), nil
	case ProviderFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("source: dir is required for the %s provider", ProviderFile)
		}
		return NewFile(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("source: unknown provider %q", cfg.Provider)
	}
}
