package agents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{
		TypeAIEngineer,
		TypeBlockchainSpecialist,
		TypeComplianceOfficer,
		TypeIncidentResponder,
		TypeSecurityAnalyst,
	}, c.Types())
	assert.Len(t, c.Categories(), 5)

	tmpl, ok := c.Lookup(TypeSecurityAnalyst)
	require.True(t, ok)
	assert.Equal(t, "Security Operations Analyst", tmpl.Role)
	assert.Len(t, tmpl.BaseCapabilities, 5)
	assert.Len(t, tmpl.RequiredSkills, 5)
}

func TestCatalog_LookupReturnsCopy(t *testing.T) {
	c := DefaultCatalog()

	tmpl, ok := c.Lookup(TypeAIEngineer)
	require.True(t, ok)
	tmpl.BaseCapabilities[0] = "mutated"
	tmpl.Specialization = "mutated"

	again, _ := c.Lookup(TypeAIEngineer)
	assert.Equal(t, "ML model development", again.BaseCapabilities[0])
	assert.Equal(t, "AI-powered Security Solutions", again.Specialization)

	all := c.All()
	all[TypeAIEngineer].RequiredSkills[0] = "mutated"
	again, _ = c.Lookup(TypeAIEngineer)
	assert.Equal(t, "Machine learning frameworks", again.RequiredSkills[0])
}

func TestNewCatalog_CopiesInput(t *testing.T) {
	src := map[string]AgentTemplate{
		"scout": {Name: "Scout", Role: "Recon", Specialization: "OSINT", BaseCapabilities: []string{"crawl"}},
	}
	c := NewCatalog(src)
	src["scout"].BaseCapabilities[0] = "changed"
	delete(src, "scout")

	tmpl, ok := c.Lookup("scout")
	require.True(t, ok)
	assert.Equal(t, []string{"crawl"}, tmpl.BaseCapabilities)
}

func TestCatalog_CategoriesDeduplicated(t *testing.T) {
	c := NewCatalog(map[string]AgentTemplate{
		"a": {Name: "A", Role: "r", Specialization: "Same"},
		"b": {Name: "B", Role: "r", Specialization: "Same"},
		"c": {Name: "C", Role: "r", Specialization: "Other"},
	})
	assert.Equal(t, []string{"Other", "Same"}, c.Categories())
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	data := `
threat_hunter:
  name: Hunter
  role: Threat Hunter
  specialization: Proactive Hunting
  base_capabilities:
    - Hypothesis-driven hunting
  required_skills:
    - KQL
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := LoadCatalogFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"threat_hunter"}, c.Types())

	tmpl, ok := c.Lookup("threat_hunter")
	require.True(t, ok)
	assert.Equal(t, "Threat Hunter", tmpl.Role)
	assert.Equal(t, []string{"KQL"}, tmpl.RequiredSkills)
}

func TestLoadCatalogFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCatalogFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("{}\n"), 0o644))
	_, err = LoadCatalogFile(empty)
	assert.Error(t, err)

	noRole := filepath.Join(dir, "norole.yaml")
	require.NoError(t, os.WriteFile(noRole, []byte("x:\n  name: X\n"), 0o644))
	_, err = LoadCatalogFile(noRole)
	assert.ErrorContains(t, err, "name and role are required")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("x: [unterminated"), 0o644))
	_, err = LoadCatalogFile(broken)
	assert.Error(t, err)
}
