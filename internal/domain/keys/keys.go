// Package keys holds the viper configuration key strings.
package keys

const (
	StorageDir  = "storage-dir"
	DBPath      = "db-path"
	Port        = "port"
	APIKey      = "api-key"
	MaxQuality  = "max-quality"
	YTDLPBin    = "ytdlp-bin"
	DebugLevel  = "debug"
	LogFilePath = "log-file"
	SkipLock    = "skip-lock"
)
