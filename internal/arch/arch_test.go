// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"testing"
)

type pkg struct {
	ImportPath string
	Imports    []string
	Standard   bool
}

// TestImportBoundaries enforces that the low-level support packages never
// import the CLI dispatcher or the binary entrypoint, so internal/app stays
// the one place that wires everything else together.
func TestImportBoundaries(t *testing.T) {
	cmd := exec.Command("go", "list", "-json", "./...")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("go list: %v", err)
	}
	dec := json.NewDecoder(&out)

	forbidden := []string{"ipcr/internal/app", "ipcr/cmd/"}
	leaves := []string{
		"ipcr/internal/cli",
		"ipcr/internal/writers",
		"ipcr/internal/diag",
		"ipcr-core/perr",
		"ipcr/internal/stats",
		"ipcr/internal/checkpoint",
		"ipcr/internal/invariant",
		"ipcr/internal/version",
		"ipcr/internal/jsonutil",
		"ipcr/internal/jsonlutil",
		"ipcr/internal/appshell",
	}

	var violations []string
	for {
		var p pkg
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.HasPrefix(p.ImportPath, "ipcr/") {
			continue
		}
		isLeaf := false
		for _, leaf := range leaves {
			if strings.HasPrefix(p.ImportPath, leaf) {
				isLeaf = true
				break
			}
		}
		if !isLeaf {
			continue
		}
		for _, dep := range p.Imports {
			for _, ban := range forbidden {
				if strings.HasPrefix(dep, ban) {
					violations = append(violations, p.ImportPath+" → "+dep)
				}
			}
		}
	}

	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n  %s", strings.Join(violations, "\n  "))
	}
}
