package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputPath(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	tests := []struct {
		name        string
		path        string
		errContains string
		wantErr     bool
	}{
		{
			name: "existing parent",
			path: filepath.Join(tmpDir, "report.xlsx"),
		},
		{
			name: "missing parent is allowed",
			path: filepath.Join(tmpDir, "reports", "new", "report.csv"),
		},
		{
			name:        "traversal",
			path:        "reports/../../etc/passwd",
			wantErr:     true,
			errContains: "directory traversal",
		},
		{
			name:        "parent is a file",
			path:        filepath.Join(file, "report.csv"),
			wantErr:     true,
			errContains: "not a directory",
		},
		{
			name:        "empty",
			path:        "  ",
			wantErr:     true,
			errContains: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateOutputPath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestValidateDocumentPath(t *testing.T) {
	tmpDir := t.TempDir()
	doc := filepath.Join(tmpDir, "rcm.XLSX")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0600))
	txt := filepath.Join(tmpDir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0600))

	got, err := ValidateDocumentPath(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	_, err = ValidateDocumentPath(txt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document type")

	_, err = ValidateDocumentPath(filepath.Join(tmpDir, "missing.csv"))
	require.Error(t, err)
}

func TestSanitizeUploadName(t *testing.T) {
	tests := map[string]string{
		"matrix.xlsx":             "matrix.xlsx",
		"../../etc/passwd":        "passwd",
		`C:\Users\me\My RCM.docx`: "My_RCM.docx",
		".hidden.csv":             "hidden.csv",
		"":                        "upload",
		"%%%.pdf":                 "pdf",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeUploadName(in), "input %q", in)
	}
}

func TestJoinAndValidate(t *testing.T) {
	base := t.TempDir()

	got, err := JoinAndValidate(base, "analyses", "abc", "analysis.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "analyses", "abc", "analysis.json"), got)

	_, err = JoinAndValidate(base, "..", "escape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory traversal")

	_, err = JoinAndValidate(base, "/etc/passwd")
	require.NoError(t, err, "absolute elements are joined under the base")
}

func TestIsWithinDirectory(t *testing.T) {
	base := t.TempDir()

	within, err := IsWithinDirectory(filepath.Join(base, "a", "b"), base)
	require.NoError(t, err)
	assert.True(t, within)

	within, err = IsWithinDirectory(base, base)
	require.NoError(t, err)
	assert.True(t, within)

	within, err = IsWithinDirectory(base+"-sibling", base)
	require.NoError(t, err)
	assert.False(t, within)
}
