package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	fitDir := t.TempDir()
	fitSample(t, fitDir, "--plot=false", "--quiet")
	fitSample(t, fitDir, "--plot=false", "--quiet", "--format", "yaml")

	broken := filepath.Join(fitDir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"schema_version": 1, "traces": "none"}`), 0o600))

	tests := []struct {
		name     string
		args     []string
		wantErr  error
		contains []string
	}{
		{
			name:     "json and yaml",
			args:     []string{filepath.Join(fitDir, "sample_fit.json"), filepath.Join(fitDir, "sample_fit.yaml")},
			contains: []string{"✓ " + filepath.Join(fitDir, "sample_fit.json"), "✓ " + filepath.Join(fitDir, "sample_fit.yaml")},
		},
		{
			name:     "violations",
			args:     []string{broken},
			wantErr:  ErrInvalidDocuments,
			contains: []string{"✗ " + broken, "violations"},
		},
		{
			name:     "missing file",
			args:     []string{filepath.Join(fitDir, "absent.json")},
			wantErr:  ErrInvalidDocuments,
			contains: []string{"absent.json"},
		},
		{
			name:    "no documents",
			wantErr: ErrNoDocuments,
		},
		{
			name:     "schema",
			args:     []string{"--schema"},
			contains: []string{`"$schema"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, NewValidateCommand(), append(tt.args, "--no-color")...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}
