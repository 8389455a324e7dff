package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

const configName = ".irulefmt.toml"

// A config holds the settings read from the nearest .irulefmt.toml.
type config struct {
	// Extensions lists the file extensions formatted when
	// walking a directory. Files named explicitly are always formatted.
	Extensions []string `toml:"extensions"`

	// Exclude lists base-name patterns (see filepath.Match)
	// of files and directories skipped during a walk.
	Exclude []string `toml:"exclude"`
}

var defaultExtensions = []string{".tcl", ".irule", ".irul"}

var configCache = map[string]config{}

// findConfig returns the configuration for dir: the nearest
// .irulefmt.toml in dir or any of its parents, or the defaults.
func findConfig(dir string) (config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return config{}, err
	}

	var visited []string
	defer func() {
		// Every visited directory shares the result.
		for _, d := range visited {
			configCache[d] = configCache[dir]
		}
	}()

	for {
		if cfg, ok := configCache[dir]; ok {
			return cfg, nil
		}
		visited = append(visited, dir)

		cfg, err := loadConfig(filepath.Join(dir, configName))
		if err == nil {
			configCache[dir] = cfg
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			visited = nil
			return config{}, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Root.
			configCache[dir] = config{Extensions: defaultExtensions}
			return configCache[dir], nil
		}
		dir = parent
	}
}

func loadConfig(path string) (config, error) {
	var cfg config
	meta, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return config{}, err
	}
	if err != nil {
		return config{}, fmt.Errorf("%s: %v", path, err)
	}
	for _, key := range meta.Undecoded() {
		log.Printf("%s: unknown option %q", path, key)
	}
	if !meta.IsDefined("extensions") {
		cfg.Extensions = defaultExtensions
	}
	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			cfg.Extensions[i] = "." + ext
		}
	}
	for _, pat := range cfg.Exclude {
		if _, err := filepath.Match(pat, ""); err != nil {
			return config{}, fmt.Errorf("%s: exclude %q: %v", path, pat, err)
		}
	}
	return cfg, nil
}

func (c config) excluded(name string) bool {
	for _, pat := range c.Exclude {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

func (c config) wants(name string) bool {
	return slices.Contains(c.Extensions, filepath.Ext(name)) && !c.excluded(name)
}

// collectFiles expands the command-line paths into the list of files
// to format, in argument order, without duplicates. Directories are
// walked; each walked file is checked against the configuration of
// its own directory.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		fi, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == root {
					return nil
				}
				cfg, err := findConfig(filepath.Dir(path))
				if err != nil {
					return err
				}
				if cfg.excluded(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			cfg, err := findConfig(filepath.Dir(path))
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && cfg.wants(d.Name()) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
