package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/civu/pkg/atd"
	"github.com/Sumatoshi-tech/civu/pkg/gauss"
)

// writeDataset writes a two-ATD dataset named "sample" and returns its path.
func writeDataset(t *testing.T, dir string) string {
	t.Helper()

	x := make([]float64, 100)
	for i := range x {
		x[i] = float64(i)
	}

	ds, err := atd.New("sample", x, map[string][]float64{
		"2V":  gauss.ParameterSet{{Height: 10, Center: 30, Spread: 1.5}, {Height: 6, Center: 70, Spread: 1.5}}.Reconstruct(x),
		"10V": gauss.ParameterSet{{Height: 4, Center: 30, Spread: 1.5}, {Height: 9, Center: 70, Spread: 1.5}}.Reconstruct(x),
	})
	require.NoError(t, err)

	var buf bytes.Buffer

	require.NoError(t, ds.Write(&buf))

	path := filepath.Join(dir, "sample.txt")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	return path
}

// writeConfig writes content as a config file so tests never pick up a
// config from the working or home directory.
func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, ".civu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// execute runs cmd with args and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

// fitSample fits the sample dataset into outDir with the given extra flags.
func fitSample(t *testing.T, outDir string, extra ...string) string {
	t.Helper()

	dir := t.TempDir()
	dataset := writeDataset(t, dir)

	args := []string{
		dataset,
		"--config", writeConfig(t, dir, ""),
		"--output", outDir,
		"--means", "[30,70]",
		"--cycles", "2",
		"--no-color",
	}

	out, err := execute(t, NewFitCommand(), append(args, extra...)...)
	require.NoError(t, err)

	return out
}
