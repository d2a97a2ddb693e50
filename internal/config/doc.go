// Package config provides configuration management for lrc-downloader.
//
// This package handles:
//   - Loading and saving settings from TOML files
//   - Default configuration values
//   - Validation of names resolved by other packages (layout, strategy,
//     page encoding, report format)
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// 10 concurrent requests against https://www.lyricsify.com
//	// three-hop resolution, first search result
//	// no retries, no miss cache, no report
//
// # Loading from File
//
//	settings, err := config.Load("config.toml")
//	if err != nil {
//	    // Missing files are not an error; defaults are used
//	}
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
//
// # Writing a Starting Point
//
// CreateConfigFile writes a commented config.toml with every key at its
// default value:
//
//	err := config.CreateConfigFile("config.toml")
package config
