package shared

type Config struct {
	Store     StoreConfig     `mapstructure:"store" validate:"required"`
	Sqlite    SqliteConfig    `mapstructure:"sqlite"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Server    ServerConfig    `mapstructure:"server"`
	Google    GoogleConfig    `mapstructure:"google"`
	Log       LogConfig       `mapstructure:"log"`
}

type StoreConfig struct {
	DataDir      string `mapstructure:"dataDir" validate:"required"`
	Backend      string `mapstructure:"backend" validate:"required,oneof=file sqlite"`
	CeilingBytes int64  `mapstructure:"ceilingBytes" validate:"min=0"`
	GCSchedule   string `mapstructure:"gcSchedule"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase" validate:"max=256"`
}

type DirectoryConfig struct {
	Source    string `mapstructure:"source" validate:"omitempty,oneof=none vcard google"`
	VCardFile string `mapstructure:"vcardFile"`
	TokenFile string `mapstructure:"tokenFile"`
}

type WorkersConfig struct {
	Concurrency int    `mapstructure:"concurrency" validate:"min=0,max=64"`
	TimeZone    string `mapstructure:"timeZone"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	OAuthClientFile        string        `mapstructure:"oauthClientFile"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Bucket         string `mapstructure:"bucket" validate:"required_with=EnableBackup"`
	Prefix         string `mapstructure:"prefix" validate:"required_with=EnableBackup"`
	BackupSchedule string `mapstructure:"backupSchedule" validate:"required_with=EnableBackup"`
	EnableBackup   bool   `mapstructure:"enableBackup"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}
