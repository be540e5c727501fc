package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fieldarchive/unitlabel/internal/conf"
	"github.com/fieldarchive/unitlabel/internal/datastore/entities"
)

const testConfig = `
database:
  type: sqlite
  sqlite:
    path: %s
identifiers:
  default_pad_length: 3
concepts:
  types:
    - id: ct-us
      key: stratigraphic-unit
      code: US
logging:
  default_level: error
  console:
    enabled: true
    level: error
server:
  metrics: false
`

func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(testConfig, filepath.Join(dir, "unitlabel.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the command line with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := RootCommand(&conf.Settings{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestAllocateShowAndList(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "allocate", "--spatial-unit", "su-1", "--type", "stratigraphic-unit")
	require.NoError(t, err)

	var snap entities.IdentifierSnapshot
	require.NoError(t, yaml.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "US001", snap.Label)
	assert.Equal(t, int64(1), snap.SequenceNumber)
	require.NotEmpty(t, snap.RecordingUnitID)

	out, err = execute(t, "--config", cfg, "allocate", "--spatial-unit", "su-1", "--type", "stratigraphic-unit", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "label: US002")

	out, err = execute(t, "--config", cfg, "snapshot", "show", snap.RecordingUnitID)
	require.NoError(t, err)
	assert.Contains(t, out, "label: US001")

	out, err = execute(t, "--config", cfg, "counters", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "spatial_unit")
	assert.Contains(t, out, "ct-us")
	assert.Regexp(t, `ct-us\s+1\s+-`, out, "dry run must not consume a value")
}

func TestAllocate_Nested(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "allocate", "--action-unit", "au-1", "--type", "stratigraphic-unit")
	require.NoError(t, err)
	var parent entities.IdentifierSnapshot
	require.NoError(t, yaml.Unmarshal([]byte(out), &parent))

	out, err = execute(t, "--config", cfg, "allocate", "--parent", parent.RecordingUnitID, "--type", "stratigraphic-unit", "--pad", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "label: US001-01")
}

func TestLabelsRegister_SkippedByAllocate(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "labels", "register", "--spatial-unit", "su-1", "--type", "stratigraphic-unit", "--label", "US001", "--label", "US002")
	require.NoError(t, err)
	assert.Contains(t, out, "registered US001")
	assert.Contains(t, out, "registered US002")

	out, err = execute(t, "--config", cfg, "allocate", "--spatial-unit", "su-1", "--type", "stratigraphic-unit")
	require.NoError(t, err)
	assert.Contains(t, out, "label: US003")

	out, err = execute(t, "--config", cfg, "labels", "list", "--spatial-unit", "su-1", "--type", "stratigraphic-unit")
	require.NoError(t, err)
	assert.Regexp(t, `US001\s+import`, out)
	assert.Regexp(t, `US002\s+import`, out)
	assert.Regexp(t, `US003\s+allocated`, out)

	out, err = execute(t, "--config", cfg, "snapshot", "list", "--spatial-unit", "su-1")
	require.NoError(t, err)
	assert.Regexp(t, `US003\s+3\s+allocated`, out)
}

func TestCountersSetFormat(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "--config", cfg, "counters", "set-format", "--spatial-unit", "su-9", "--type", "stratigraphic-unit", "--length", "5")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfg, "allocate", "--spatial-unit", "su-9", "--type", "stratigraphic-unit")
	require.NoError(t, err)
	assert.Contains(t, out, "label: US00001")

	_, err = execute(t, "--config", cfg, "counters", "set-format", "--spatial-unit", "su-9", "--type", "stratigraphic-unit", "--length", "0")
	require.Error(t, err)
}

func TestSnapshotRestore(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "--config", cfg, "allocate", "--spatial-unit", "su-1", "--type", "stratigraphic-unit")
	require.NoError(t, err)
	var snap entities.IdentifierSnapshot
	require.NoError(t, yaml.Unmarshal([]byte(out), &snap))

	snap.Label = "US-corrected"
	data, err := yaml.Marshal(&snap)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(file, data, 0o600))

	out, err = execute(t, "--config", cfg, "snapshot", "restore", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "label: US-corrected")
	assert.Contains(t, out, "origin: "+entities.OriginRestored)
}

func TestErrors(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "--config", cfg, "allocate", "--spatial-unit", "su-1", "--type", "pottery")
	require.Error(t, err)

	_, err = execute(t, "--config", cfg, "allocate", "--spatial-unit", "su-1", "--parent", "x", "--type", "stratigraphic-unit")
	require.Error(t, err, "scope flags are exclusive")

	_, err = execute(t, "--config", cfg, "snapshot", "show", "missing")
	require.Error(t, err)

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "counters", "list")
	require.Error(t, err)
}
