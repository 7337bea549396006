package agent

import (
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/agentflow/internal/a2a"
	"github.com/dusk-indust/agentflow/internal/domain"
	"github.com/dusk-indust/agentflow/internal/logging"
	"github.com/dusk-indust/agentflow/internal/oracle"
)

// defaultCatalogs holds the catalog used when no agents file is configured.
//
//go:embed catalogs/*.yaml
var defaultCatalogs embed.FS

// Catalog is the YAML description of the agents available to a run.
type Catalog struct {
	Agents   []AgentSpec `yaml:"agents"`
	Parallel []string    `yaml:"parallel,omitempty"`
	Chain    []string    `yaml:"chain,omitempty"`
}

// AgentSpec describes one agent. An entry with an endpoint is a remote A2A
// agent; every other entry is an oracle-backed specialist.
type AgentSpec struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Persona       string   `yaml:"persona,omitempty"`
	Knowledge     string   `yaml:"knowledge,omitempty"`
	KnowledgeFile string   `yaml:"knowledge_file,omitempty"`
	System        string   `yaml:"system,omitempty"`
	Kinds         []string `yaml:"kinds,omitempty"`
	Endpoint      string   `yaml:"endpoint,omitempty"`
	Generic       bool     `yaml:"generic,omitempty"`
	Synthesizer   bool     `yaml:"synthesizer,omitempty"`
}

// Roster is a built catalog: the registry plus the named agent sets the
// patterns draw from.
type Roster struct {
	Registry    *Registry
	Synthesizer Descriptor
	Parallel    []Descriptor
	Chain       []Descriptor
	Remotes     []*Remote
}

// ParseCatalog decodes and validates a catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse agent catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog reads a catalog file. knowledge_file paths are resolved
// relative to the catalog's directory.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range c.Agents {
		spec := &c.Agents[i]
		if spec.KnowledgeFile == "" {
			continue
		}
		kpath := spec.KnowledgeFile
		if !filepath.IsAbs(kpath) {
			kpath = filepath.Join(dir, kpath)
		}
		k, err := os.ReadFile(kpath)
		if err != nil {
			return nil, fmt.Errorf("agent %q: read knowledge: %w", spec.Name, err)
		}
		spec.Knowledge = string(k)
	}
	return c, nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	data, err := defaultCatalogs.ReadFile("catalogs/default.yaml")
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// Validate checks names and cross references.
func (c *Catalog) Validate() error {
	names := make(map[string]bool, len(c.Agents))
	var generic, synth int
	for i, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("%w: agent %d has no name", domain.ErrInvalidInput, i)
		}
		if names[a.Name] {
			return fmt.Errorf("%w: %q", domain.ErrDuplicateAgent, a.Name)
		}
		names[a.Name] = true
		if a.Generic {
			generic++
		}
		if a.Synthesizer {
			synth++
		}
		if a.Generic && a.Synthesizer {
			return fmt.Errorf("%w: agent %q cannot be both generic and synthesizer", domain.ErrInvalidInput, a.Name)
		}
		if a.Synthesizer && len(a.Kinds) > 0 {
			return fmt.Errorf("%w: synthesizer %q cannot claim kinds", domain.ErrInvalidInput, a.Name)
		}
	}
	if generic > 1 {
		return fmt.Errorf("%w: more than one generic agent", domain.ErrInvalidInput)
	}
	if synth > 1 {
		return fmt.Errorf("%w: more than one synthesizer", domain.ErrInvalidInput)
	}
	for _, list := range [][]string{c.Parallel, c.Chain} {
		for _, n := range list {
			if !names[n] {
				return fmt.Errorf("%w: %q", domain.ErrUnknownAgent, n)
			}
		}
	}
	return nil
}

// Build turns the catalog into a Roster. Specialists use o; remote agents
// use client. Without a synthesizer entry the built-in one is used.
func (c *Catalog) Build(o oracle.Client, client a2a.Client, logger *slog.Logger) (*Roster, error) {
	logger = logging.OrDiscard(logger)
	reg, _ := NewRegistry()
	roster := &Roster{Registry: reg}
	all := make(map[string]Descriptor, len(c.Agents))

	for _, spec := range c.Agents {
		d, remote, err := c.descriptor(spec, o, client, logger)
		if err != nil {
			return nil, err
		}
		all[spec.Name] = d
		if remote != nil {
			roster.Remotes = append(roster.Remotes, remote)
		}

		if spec.Synthesizer {
			roster.Synthesizer = d
			continue
		}
		if err := reg.Register(d); err != nil {
			return nil, err
		}
		if len(spec.Kinds) > 0 {
			if err := reg.Bind(spec.Name, spec.Kinds...); err != nil {
				return nil, err
			}
		}
		if spec.Generic {
			if err := reg.SetFallback(spec.Name); err != nil {
				return nil, err
			}
		}
	}

	if roster.Synthesizer.Invoke == nil {
		if o == nil {
			return nil, fmt.Errorf("%w: no synthesizer and no oracle", domain.ErrInvalidInput)
		}
		roster.Synthesizer = NewSynthesizer(o, logger).Descriptor()
	}
	for _, n := range c.Parallel {
		roster.Parallel = append(roster.Parallel, all[n])
	}
	for _, n := range c.Chain {
		roster.Chain = append(roster.Chain, all[n])
	}

	logger.Debug("agent catalog built", "agents", reg.Len(), "remotes", len(roster.Remotes))
	return roster, nil
}

func (c *Catalog) descriptor(spec AgentSpec, o oracle.Client, client a2a.Client, logger *slog.Logger) (Descriptor, *Remote, error) {
	if spec.Endpoint != "" {
		if client == nil {
			return Descriptor{}, nil, fmt.Errorf("%w: agent %q is remote but no A2A client is configured", domain.ErrInvalidInput, spec.Name)
		}
		r := &Remote{
			Name:        spec.Name,
			Description: spec.Description,
			Endpoint:    spec.Endpoint,
			Client:      client,
			Logger:      logger,
		}
		return r.Descriptor(), r, nil
	}

	if o == nil {
		return Descriptor{}, nil, fmt.Errorf("%w: agent %q needs an oracle", domain.ErrInvalidInput, spec.Name)
	}
	var s *Specialist
	switch {
	case spec.Generic:
		s = NewGeneric(o, logger)
	case spec.Synthesizer:
		s = NewSynthesizer(o, logger)
	default:
		s = &Specialist{Oracle: o, Logger: logger}
	}
	s.Name = spec.Name
	if spec.Description != "" {
		s.Description = spec.Description
	}
	if spec.Persona != "" {
		s.Persona = spec.Persona
	}
	if spec.Knowledge != "" {
		s.Knowledge = spec.Knowledge
	}
	if spec.System != "" {
		s.Instructions = spec.System
	}
	if s.Persona == "" {
		s.Persona = fmt.Sprintf("You are %s. %s", spec.Name, s.Description)
	}
	return s.Descriptor(), nil, nil
}
