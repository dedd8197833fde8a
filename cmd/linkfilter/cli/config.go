package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "LINKFILTER"

var (
	configDirs = []string{".", "./config", "/etc/linkfilter", "$HOME/.linkfilter"}
	envFiles   = []string{".env", ".env.local"}
)

func initConfig(path string) error {
	dirs := configDirs
	if path != "" {
		viper.SetConfigFile(path)
		dirs = []string{filepath.Dir(path)}
	} else {
		// Matches the file written by 'config generate'
		viper.SetConfigName("linkfilter")
		viper.SetConfigType("yaml")
		for _, dir := range configDirs {
			viper.AddConfigPath(dir)
		}
	}

	loadEnvFiles(dirs)

	// LINKFILTER_HTTP_ADDRESS overrides http.address
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// loadEnvFiles loads .env files from the working directory first, then from
// each config directory. Variables that are already set win.
func loadEnvFiles(dirs []string) {
	for _, envFile := range envFiles {
		godotenv.Load(envFile) // Missing files are fine
	}

	for _, dir := range dirs {
		dir = os.ExpandEnv(dir)
		if dir == "." {
			continue
		}
		for _, envFile := range envFiles {
			godotenv.Load(filepath.Join(dir, envFile))
		}
	}
}
