package schema

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ontocore/core/internal/kb"
	"github.com/ontocore/core/pkg/coreerrors"
	"github.com/ontocore/core/pkg/logger"
)

// Cache persists KB extracts under a per-namespace directory, one JSON file
// per class, property, and namespace (spec.md §4.1).
type Cache struct {
	dir string
	log *logger.Logger
}

// NewCache opens a Cache rooted at dir.
func NewCache(dir string, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.NewDefault("schema-cache")
	}
	return &Cache{dir: dir, log: log}
}

func (c *Cache) namespaceDir(nsPrefix string) string { return filepath.Join(c.dir, nsPrefix) }

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, v)
}

// Exists reports whether the cache directory has any content.
func (c *Cache) Exists() bool {
	entries, err := os.ReadDir(c.dir)
	return err == nil && len(entries) > 0
}

// Write persists the full extract set, one file per entity, overwriting any
// prior file of the same name; files for entities absent from this set are
// left in place.
func (c *Cache) Write(namespaces []kb.Namespace, classes []kb.ClassExtract, properties []kb.PropertyExtract) *coreerrors.CoreError {
	for _, ns := range namespaces {
		path := filepath.Join(c.namespaceDir(ns.Prefix), "_namespace.json")
		if err := writeJSON(path, ns); err != nil {
			return coreerrors.WriteFailed(path, err)
		}
	}
	for _, cl := range classes {
		path := filepath.Join(c.namespaceDir(cl.IDNamespace), "class_"+cl.Name+".json")
		if err := writeJSON(path, cl); err != nil {
			return coreerrors.WriteFailed(path, err)
		}
	}
	for _, p := range properties {
		path := filepath.Join(c.namespaceDir(p.IDNamespace), "property_"+p.Name+".json")
		if err := writeJSON(path, p); err != nil {
			return coreerrors.WriteFailed(path, err)
		}
	}
	c.log.WithField("namespaces", len(namespaces)).Info("schema cache written")
	return nil
}

// Read loads every extract found under the cache directory. It returns
// (nil, nil, nil, false, nil) when the cache directory is absent or empty —
// a clean no-op per the Persistence policy in spec.md §4.6.
func (c *Cache) Read() (namespaces []kb.Namespace, classes []kb.ClassExtract, properties []kb.PropertyExtract, found bool, cErr *coreerrors.CoreError) {
	if !c.Exists() {
		return nil, nil, nil, false, nil
	}

	nsDirs, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, nil, nil, false, coreerrors.ReadFailed(c.dir, err)
	}

	for _, nsDir := range nsDirs {
		if !nsDir.IsDir() {
			continue
		}
		dir := filepath.Join(c.dir, nsDir.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, nil, nil, false, coreerrors.ReadFailed(dir, err)
		}
		for _, f := range files {
			path := filepath.Join(dir, f.Name())
			switch {
			case f.Name() == "_namespace.json":
				var ns kb.Namespace
				if _, err := readJSON(path, &ns); err != nil {
					return nil, nil, nil, false, coreerrors.ReadFailed(path, err)
				}
				namespaces = append(namespaces, ns)
			case len(f.Name()) > 6 && f.Name()[:6] == "class_":
				var cl kb.ClassExtract
				if _, err := readJSON(path, &cl); err != nil {
					return nil, nil, nil, false, coreerrors.ReadFailed(path, err)
				}
				classes = append(classes, cl)
			case len(f.Name()) > 9 && f.Name()[:9] == "property_":
				var p kb.PropertyExtract
				if _, err := readJSON(path, &p); err != nil {
					return nil, nil, nil, false, coreerrors.ReadFailed(path, err)
				}
				properties = append(properties, p)
			}
		}
	}

	return namespaces, classes, properties, true, nil
}

// Load builds a Registry from the cache if present, or from extractor when
// the cache is absent or force is true; on a fresh build it writes the cache
// back (spec.md §4.1: "uses the cache if present, rebuilds from OWL on
// explicit force, and writes back a fresh cache").
func (c *Cache) Load(extractor kb.Extractor, force bool, log *logger.Logger) (*Registry, *coreerrors.CoreError) {
	if !force {
		namespaces, classes, properties, found, err := c.Read()
		if err != nil {
			return nil, err
		}
		if found {
			c.log.Info("schema registry loaded from cache")
			return NewRegistry(log, namespaces, classes, properties)
		}
	}

	namespaces, nsErr := extractor.Namespaces()
	if nsErr != nil {
		return nil, coreerrors.ReadFailed("extractor:namespaces", nsErr)
	}
	classes, clErr := extractor.Classes()
	if clErr != nil {
		return nil, coreerrors.ReadFailed("extractor:classes", clErr)
	}
	properties, propErr := extractor.Properties()
	if propErr != nil {
		return nil, coreerrors.ReadFailed("extractor:properties", propErr)
	}

	registry, err := NewRegistry(log, namespaces, classes, properties)
	if err != nil {
		return nil, err
	}

	if writeErr := c.Write(namespaces, classes, properties); writeErr != nil {
		c.log.WithField("error", writeErr.Error()).Warn("failed to persist schema cache")
	}

	return registry, nil
}
