package config

import (
	"encoding/json"
	"os"
	"sync"
)

// AppConfig holds the structure of the configuration
type AppConfig struct {
	SelfPath  string  `json:"selfpath"`
	Port      string  `json:"port"`
	Blocksize int     `json:"blocksize"` // pixels per cell when rendering
	Width     int     `json:"width"`     // screen width in pixels
	Height    int     `json:"height"`    // screen height in pixels
	CellSize  int     `json:"cellsize"`  // simulation cell size in pixels
	TickRate  float64 `json:"tickrate"`  // base ticks per second
	Database  string  `json:"database"`
	Settings  string  `json:"settings"`
	Sprites   string  `json:"sprites"`
}

var (
	instance *AppConfig
	once     sync.Once
)

// Defaults returns the configuration written on first run.
func Defaults() AppConfig {
	return AppConfig{
		SelfPath:  "http://www.example.com", // Default value
		Port:      "38870",                  // Default value
		Blocksize: 20,
		Width:     800,
		Height:    600,
		CellSize:  20,
		TickRate:  10,
		Database:  "game.db",
		Settings:  "settings.json",
		Sprites:   "./sprites",
	}
}

// LoadConfig initializes and returns the instance of AppConfig
func LoadConfig(filePath string) *AppConfig {
	once.Do(func() {
		defaults := Defaults()
		instance = &defaults
		// Load the config file if it exists, otherwise create one
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			saveConfig(filePath)
		} else {
			loadConfig(filePath)
		}
	})
	return instance
}

// loadConfig loads the settings from the file
func loadConfig(filePath string) {
	file, err := os.Open(filePath)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(instance); err != nil {
		panic(err)
	}
}

// saveConfig saves the current settings to the file
func saveConfig(filePath string) {
	file, err := os.Create(filePath)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(instance); err != nil {
		panic(err)
	}
}

// GetConfigValue returns the value of the configuration by key
func GetConfigValue(key string) interface{} {
	switch key {
	case "selfpath":
		return instance.SelfPath
	case "port":
		return instance.Port
	case "blocksize":
		return instance.Blocksize
	case "width":
		return instance.Width
	case "height":
		return instance.Height
	case "cellsize":
		return instance.CellSize
	case "tickrate":
		return instance.TickRate
	case "database":
		return instance.Database
	case "settings":
		return instance.Settings
	case "sprites":
		return instance.Sprites
	default:
		return ""
	}
}
