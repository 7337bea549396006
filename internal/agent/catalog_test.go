package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/agentflow/internal/a2a"
	"github.com/dusk-indust/agentflow/internal/domain"
)

const testCatalog = `
agents:
  - name: zoning
    description: Checks zoning designations
    persona: You are a zoning officer.
    kinds: [zoning, land use]
  - name: site
    description: Reviews site plans
    endpoint: http://127.0.0.1:9301
    kinds: [site]
  - name: fallback
    description: Anything else
    generic: true
  - name: editor
    description: Merges reviews
    synthesizer: true
parallel: [zoning, site]
chain: [site, zoning]
`

func TestParseCatalog_Build(t *testing.T) {
	c, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	require.Len(t, c.Agents, 4)

	o := &recordingOracle{reply: "<response>ok</response>"}
	roster, err := c.Build(o, a2a.NewHTTPClient(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"zoning", "site", "fallback"}, roster.Registry.Names(), "the synthesizer is not a worker")
	assert.Equal(t, "editor", roster.Synthesizer.Name)
	require.Len(t, roster.Remotes, 1)
	assert.Equal(t, "http://127.0.0.1:9301", roster.Remotes[0].Endpoint)

	d, err := roster.Registry.Worker("Land Use review")
	require.NoError(t, err)
	assert.Equal(t, "zoning", d.Name)
	d, err = roster.Registry.Worker("site plan")
	require.NoError(t, err)
	assert.Equal(t, "site", d.Name)
	d, err = roster.Registry.Worker("traffic")
	require.NoError(t, err)
	assert.Equal(t, "fallback", d.Name)

	require.Len(t, roster.Parallel, 2)
	assert.Equal(t, "zoning", roster.Parallel[0].Name)
	require.Len(t, roster.Chain, 2)
	assert.Equal(t, "site", roster.Chain[0].Name)

	res, err := d.Invoke(context.Background(), domain.Task{Instruction: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Output)
	assert.Contains(t, o.systems[0], "generalist", "generic entries keep the built-in persona")
}

func TestCatalog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"missing name", "agents:\n  - description: x\n", domain.ErrInvalidInput},
		{"duplicate", "agents:\n  - name: a\n  - name: a\n", domain.ErrDuplicateAgent},
		{"two generics", "agents:\n  - name: a\n    generic: true\n  - name: b\n    generic: true\n", domain.ErrInvalidInput},
		{"generic synthesizer", "agents:\n  - name: a\n    generic: true\n    synthesizer: true\n", domain.ErrInvalidInput},
		{"synthesizer kinds", "agents:\n  - name: a\n    synthesizer: true\n    kinds: [x]\n", domain.ErrInvalidInput},
		{"unknown parallel", "agents:\n  - name: a\nparallel: [b]\n", domain.ErrUnknownAgent},
		{"unknown chain", "agents:\n  - name: a\nchain: [b]\n", domain.ErrUnknownAgent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := ParseCatalog([]byte("agents: [unterminated"))
	assert.Error(t, err)
}

func TestCatalog_BuildNeedsBackends(t *testing.T) {
	c, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	_, err = c.Build(&recordingOracle{}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "remote entry without a client")

	local, err := ParseCatalog([]byte("agents:\n  - name: a\n"))
	require.NoError(t, err)
	_, err = local.Build(nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "specialist without an oracle")
}

func TestCatalog_DefaultSynthesizer(t *testing.T) {
	c, err := ParseCatalog([]byte("agents:\n  - name: a\n    description: does a\n"))
	require.NoError(t, err)

	o := &recordingOracle{reply: "<response>a</response>"}
	roster, err := c.Build(o, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, SynthesizerName, roster.Synthesizer.Name)

	d, ok := roster.Registry.Lookup("a")
	require.True(t, ok)
	_, err = d.Invoke(context.Background(), domain.Task{Instruction: "x"})
	require.NoError(t, err)
	assert.Contains(t, o.systems[0], "You are a. does a", "a persona is derived when none is given")
}

func TestLoadCatalog_KnowledgeFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "france.txt"), []byte("The capital of France is London."), 0o644))
	path := filepath.Join(dir, "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agents:\n  - name: geo\n    knowledge_file: france.txt\n"), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "The capital of France is London.", c.Agents[0].Knowledge)

	require.NoError(t, os.WriteFile(path, []byte("agents:\n  - name: geo\n    knowledge_file: missing.txt\n"), 0o644))
	_, err = LoadCatalog(path)
	assert.ErrorContains(t, err, "read knowledge")

	_, err = LoadCatalog(filepath.Join(dir, "nope.yaml"))
	assert.ErrorContains(t, err, "read agent catalog")
}

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	roster, err := c.Build(&recordingOracle{}, nil, nil)
	require.NoError(t, err)

	for _, kind := range []string{"hematology", "Renal Function Panel", "liver enzymes"} {
		_, err := roster.Registry.Worker(kind)
		assert.NoError(t, err, kind)
	}
	fb, ok := roster.Registry.Fallback()
	require.True(t, ok)
	assert.Equal(t, "generic", fb.Name)
	assert.Len(t, roster.Parallel, 3)
	assert.Len(t, roster.Chain, 4)
	_, ok = roster.Registry.Lookup("math agent")
	assert.True(t, ok)
}
