package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	devConfig "github.com/Daskott/favdial/dev/config"
	"github.com/Daskott/favdial/googleservice"
	"github.com/Daskott/favdial/shared"
	"github.com/Daskott/favdial/utils"
	"github.com/spf13/viper"
)

// favdialConfig reads in the config file and ENV variables, and returns the
// validated config. A missing default config file is created first.
func favdialConfig() (*shared.Config, error) {
	config := viper.New()

	if cfgFile != "" {
		// Use config file from the flag.
		config.SetConfigFile(cfgFile)
	} else {
		configName, configDir, err := defaultCfgNameAndDir()
		if err != nil {
			return nil, err
		}

		// If config file is not found, create one using the default content
		configFilePath := filepath.Join(configDir, configName)
		if !utils.FileExist(configFilePath) {
			if err := writeDefaultConfig(configFilePath); err != nil {
				return nil, err
			}
		}

		config.SetConfigFile(configFilePath)
		config.SetConfigType("yaml")
	}

	// The env vars override whatever is in the config file, so secrets don't
	// need to be stored in it.
	config.BindEnv("google.applicationCredentials", "GOOGLE_APPLICATION_CREDENTIALS")
	config.BindEnv("sqlite.passPhrase", "FAVDIAL_SQLITE_PASSPHRASE")

	config.AutomaticEnv() // read in environment variables that match

	if err := config.ReadInConfig(); err != nil {
		return nil, formattedError("unable to read config file %s: %v", config.ConfigFileUsed(), err)
	}

	cfg := &shared.Config{}
	if err := config.Unmarshal(cfg); err != nil {
		return nil, formattedError("unable to decode config file %s: %v", config.ConfigFileUsed(), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, formattedError("%v\nUpdate app config in %s", err, config.ConfigFileUsed())
	}

	dataDir, err := utils.ExpandHome(cfg.Store.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Store.DataDir = dataDir

	return cfg, nil
}

// googleAppCredentials reads the OAuth client file downloaded from the Google
// cloud console.
func googleAppCredentials(filePath string) (googleservice.GoogleAppCredentials, error) {
	credentials := googleservice.GoogleAppCredentials{}

	config := viper.New()
	config.SetConfigFile(filePath)
	config.SetConfigType("json")

	if err := config.ReadInConfig(); err != nil {
		return credentials, formattedError("unable to read google oauth client file %s: %v", filePath, err)
	}

	if err := config.Unmarshal(&credentials); err != nil {
		return credentials, formattedError("unable to decode google oauth client file %s: %v", filePath, err)
	}
	return credentials, nil
}

func defaultCfgNameAndDir() (configName string, configDir string, err error) {
	configName = ".favdial.yaml"

	// Use home directory for production
	configDir, err = os.UserHomeDir()
	if err != nil {
		return "", "", err
	}

	if isDevEnv {
		configName = ".favdial.dev.yaml"
		configDir, err = os.Getwd()
		if err != nil {
			return "", "", err
		}
		configDir = filepath.Join(configDir, "dev")
	}

	return configName, configDir, err
}

func writeDefaultConfig(configFilePath string) error {
	content := defaultConfigValue()
	if isDevEnv {
		content = devConfig.DEV_FAVDIAL_YML
	}

	if err := utils.CreateDirIfNotExist(filepath.Dir(configFilePath)); err != nil {
		return err
	}

	if err := ioutil.WriteFile(configFilePath, []byte(content), 0600); err != nil {
		return fmt.Errorf("unable to create config file %s: %v", configFilePath, err)
	}
	return nil
}

// defaultConfigValue returns the default content for .favdial.yaml
func defaultConfigValue() string {
	return `store:
  # Where favorites.json (or favdial.db) and the avatars/ directory live
  dataDir: "~/.favdial"
  # file | sqlite
  backend: "file"
  ceilingBytes: 4194304
  # Sweeps avatars left behind by interrupted sessions, used by 'favdial server'
  gcSchedule: "0 3 * * *"

sqlite:
  # Can also be set with the FAVDIAL_SQLITE_PASSPHRASE env var
  passPhrase:

# Where contact names are looked up i.e. none, vcard, or google
directory:
  source: "none"
  vcardFile:
  tokenFile: "~/.favdial/token.json"

workers:
  concurrency: 2
  timeZone: "America/Toronto"

server:
  port: 3000

google:
  # Can also be set with the GOOGLE_APPLICATION_CREDENTIALS env var
  applicationCredentials:
  # OAuth client used by the google directory
  oauthClientFile:
  storage:
    bucket:
    prefix: "favdial"
    backupSchedule: "0 4 * * *"
    enableBackup: false

log:
  level: "info"
`
}
