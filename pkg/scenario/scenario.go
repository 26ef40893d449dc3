// Package scenario loads and runs YAML descriptions of proxy behavior: a
// target record, a handler built from canned trap answers, and a sequence
// of operations with their expected outcomes.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is one YAML stream of scenarios.
type File struct {
	Path      string
	Scenarios []*Scenario
}

type Scenario struct {
	Name    string              `yaml:"name"`
	Target  TargetSpec          `yaml:"target"`
	Handler map[string]TrapSpec `yaml:"handler"`
	// Expect applies to proxy creation itself; only its error fields are
	// meaningful.
	Expect Expect `yaml:"expect"`
	Steps  []Step `yaml:"steps"`

	file string
}

// TargetSpec describes the backing record.
type TargetSpec struct {
	Extensible *bool     `yaml:"extensible"`
	Prototype  yaml.Node `yaml:"prototype"`
	Callable   bool      `yaml:"callable"`
	Integrity  string    `yaml:"integrity"` // none, non-extensible, sealed, frozen
	// Properties maps names to descriptor literals, in definition order.
	Properties yaml.Node `yaml:"properties"`
}

// TrapSpec is a canned trap. Precedence: throw, a per-name answer, forward,
// result. A trap with value set is not a function at all: the literal is
// stored on the handler as is.
type TrapSpec struct {
	Result  yaml.Node            `yaml:"result"`
	Forward bool                 `yaml:"forward"`
	Names   map[string]yaml.Node `yaml:"names"`
	Throw   string               `yaml:"throw"`
	Value   yaml.Node            `yaml:"value"`
}

// Step is one operation. Ops name a proxy operation ("get"), an operation
// applied to the target record directly ("target.freeze"), or a global
// object function called with the proxy as subject ("Object.freeze").
type Step struct {
	Op         string    `yaml:"op"`
	Name       string    `yaml:"name"`
	Value      yaml.Node `yaml:"value"`
	Receiver   yaml.Node `yaml:"receiver"`
	Descriptor yaml.Node `yaml:"descriptor"`
	Proto      yaml.Node `yaml:"proto"`
	This       yaml.Node `yaml:"this"`
	Args       yaml.Node `yaml:"args"`
	Expect     Expect    `yaml:"expect"`
}

type Expect struct {
	Result     yaml.Node `yaml:"result"`
	Absent     *bool     `yaml:"absent"`
	Names      *[]string `yaml:"names"`
	Descriptor yaml.Node `yaml:"descriptor"`
	Error      string    `yaml:"error"` // invariant, revoked, not-callable, invalid-descriptor, invalid-trap, type
	Reason     string    `yaml:"reason"`
}

// File returns the path the scenario was loaded from.
func (s *Scenario) File() string { return s.file }

// Decode reads every document of a YAML stream.
func Decode(r io.Reader, path string) (*File, error) {
	f := &File{Path: path}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	for i := 1; ; i++ {
		s := &Scenario{file: path}
		err := dec.Decode(s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: document %d: %w", path, i, err)
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("%s#%d", filepath.Base(path), i)
		}
		f.Scenarios = append(f.Scenarios, s)
	}
	return f, nil
}

func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario file: %w", err)
	}
	defer fh.Close()
	return Decode(fh, path)
}

func isScenarioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load accepts files and directories; directories contribute every
// *.yaml and *.yml file beneath them, sorted by path.
func Load(paths []string) ([]*File, error) {
	var files []*File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			f, err := LoadFile(p)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isScenarioFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, path := range found {
			f, err := LoadFile(path)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}
