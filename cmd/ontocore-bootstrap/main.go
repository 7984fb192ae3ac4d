// Command ontocore-bootstrap is the dev/bootstrap harness for the core:
// it wires config, a fixture ontology extractor, and the Core aggregate,
// then blocks until asked to shut down, taking a final snapshot on the way
// out. A real deployment supplies its own kb.Extractor backed by an
// OWL/RDF parser and fronts the core with a transport layer; both are
// external collaborators out of scope here (spec.md §1).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ontocore/core/internal/core"
	"github.com/ontocore/core/internal/kb"
	"github.com/ontocore/core/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envPath := flag.String("env", "", "path to a .env file")
	ontologyFixture := flag.String("ontology-fixture", "", "path to a JSON file of {namespaces, classes, properties} standing in for the OWL parser")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	extractor, err := loadExtractor(*ontologyFixture)
	if err != nil {
		log.Fatalf("load ontology fixture: %v", err)
	}

	c, cErr := core.New(cfg, extractor)
	if cErr != nil {
		log.Fatalf("initialize core: %v", cErr)
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		log.Fatalf("start core: %v", err)
	}
	log.Printf("ontocore-bootstrap running (home=%s)", cfg.Core.HomeDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Stop(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

// fixtureFile is the on-disk shape ontology-fixture decodes, a minimal
// stand-in for whatever an OWL/RDF parser would yield.
type fixtureFile struct {
	Namespaces []kb.Namespace       `json:"namespaces"`
	Classes    []kb.ClassExtract    `json:"classes"`
	Properties []kb.PropertyExtract `json:"properties"`
}

// fixtureExtractor implements kb.Extractor by replaying a pre-extracted
// JSON file (SPEC_FULL.md "Non-goals": "a test fixture implementation
// stands in for the black-box OWL parser").
type fixtureExtractor struct {
	fixtureFile
}

func (f fixtureExtractor) Namespaces() ([]kb.Namespace, error)       { return f.fixtureFile.Namespaces, nil }
func (f fixtureExtractor) Classes() ([]kb.ClassExtract, error)       { return f.fixtureFile.Classes, nil }
func (f fixtureExtractor) Properties() ([]kb.PropertyExtract, error) { return f.fixtureFile.Properties, nil }

// loadExtractor reads path (if given) into a fixtureExtractor, or falls
// back to a single-class ontology holding only Thing (just enough structure
// for the Object Store to construct) when no fixture is supplied, so the
// harness still boots for a
// quick smoke test.
func loadExtractor(path string) (kb.Extractor, error) {
	if path == "" {
		return fixtureExtractor{fixtureFile{
			Classes: []kb.ClassExtract{{ID: "thing", IDNamespace: "core", Name: "Thing"}},
		}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ff fixtureFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, err
	}
	return fixtureExtractor{ff}, nil
}
