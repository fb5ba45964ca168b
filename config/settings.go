package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
)

// MaxUsernameLength is the longest accepted player name
const MaxUsernameLength = 9

// Settings holds the player settings, read when a game starts
type Settings struct {
	Language     string `json:"language"`
	BorderMode   bool   `json:"border_mode"`
	SoundEnabled bool   `json:"sound_enabled"`
	Username     string `json:"username"`
}

// DefaultSettings returns the settings written when no file exists.
func DefaultSettings() Settings {
	return Settings{
		Language:     "en",
		BorderMode:   false,
		SoundEnabled: true,
		Username:     "Player",
	}
}

// ValidUsername accepts 1 to 9 letters or digits
func ValidUsername(name string) bool {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxUsernameLength {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Normalize fills in defaults and replaces an invalid username
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.Language == "" {
		s.Language = def.Language
	}
	if !ValidUsername(s.Username) {
		s.Username = def.Username
	}
	return s
}

// SettingsStore loads, saves and hot-reloads the settings file
type SettingsStore struct {
	path    string
	mu      sync.RWMutex
	current Settings
}

// OpenSettings reads the settings file, writing defaults if it does not exist
func OpenSettings(path string) (*SettingsStore, error) {
	st := &SettingsStore{path: path, current: DefaultSettings()}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := st.Save(st.current); err != nil {
			return nil, err
		}
		return st, nil
	}
	if err := st.Reload(); err != nil {
		return nil, err
	}
	return st, nil
}

// Get returns a copy of the current settings.
func (st *SettingsStore) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Reload re-reads the settings file
func (st *SettingsStore) Reload() error {
	data, err := os.ReadFile(st.path)
	if err != nil {
		return err
	}
	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse %s: %w", st.path, err)
	}
	st.mu.Lock()
	st.current = s.Normalize()
	st.mu.Unlock()
	return nil
}

// Save writes to a temporary file and renames it over the settings file
func (st *SettingsStore) Save(s Settings) error {
	s = s.Normalize()
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return err
	}
	st.mu.Lock()
	st.current = s
	st.mu.Unlock()
	return nil
}

// Watch reloads the settings whenever the file changes, until done is closed
func (st *SettingsStore) Watch(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: Save replaces the file by rename
	if err := watcher.Add(filepath.Dir(st.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(st.path) {
					continue
				}
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					if err := st.Reload(); err != nil {
						log.Printf("reload settings failed: %v", err)
						continue
					}
					log.Printf("settings reloaded: %+v", st.Get())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Println("settings watcher error:", err)
			}
		}
	}()
	return nil
}
