package learned

import "context"

// Mapping associates a filename signature or pattern key with a library.
type Mapping struct {
	LibraryID   string
	LibraryName string
}

// Store is the durable state surface consumed by the matcher and the CLI.
type Store interface {
	// LookupMapping returns the learned mapping for a filename signature.
	LookupMapping(ctx context.Context, signature string) (Mapping, bool, error)
	// SaveMapping records a manual correction. Mappings grow monotonically;
	// saving an existing signature overwrites it, nothing deletes them
	// implicitly.
	SaveMapping(ctx context.Context, signature string, m Mapping) error
	// ListMappings returns all learned mappings keyed by signature.
	ListMappings(ctx context.Context) (map[string]Mapping, error)
	// DeleteMapping removes one signature. Only explicit operator action
	// goes through here.
	DeleteMapping(ctx context.Context, signature string) error

	// LookupPattern and SavePattern mirror the mapping calls for the
	// coarser year+branch+teacher pattern cache.
	LookupPattern(ctx context.Context, key string) (Mapping, bool, error)
	SavePattern(ctx context.Context, key string, m Mapping) error

	// LookupSetting and SaveSetting store user-adjustable upload settings
	// as plain key-value strings.
	LookupSetting(ctx context.Context, key string) (string, bool, error)
	SaveSetting(ctx context.Context, key, value string) error

	Close() error
}

// Setting keys persisted across sessions.
const (
	SettingMaxConcurrent = "upload.max_concurrent"
	SettingChunkSizeMiB  = "upload.chunk_size_mib"
	SettingRetryAttempts = "sheet.retry_attempts"
)
