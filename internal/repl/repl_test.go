package repl

import (
	"io"
	"os"
	"strings"
	"testing"
)

// runREPL feeds input to Start and returns what Start wrote to its own
// writer (diagnostics) followed by what the script printed: io.println
// writes to the process's real stdout, not to the REPL's writer.
func runREPL(t *testing.T, input string) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	saved := os.Stdout
	os.Stdout = w
	var out strings.Builder
	Start(strings.NewReader(input), &out, false)
	os.Stdout = saved
	w.Close()
	printed, _ := io.ReadAll(r)
	r.Close()
	return out.String() + string(printed)
}

func TestStartEvaluatesSequentialBindings(t *testing.T) {
	out := runREPL(t, "let x = 1\nlet y = x + 1\nio.println(y)\nexit\n")

	if !strings.Contains(out, "2") {
		t.Fatalf("REPL output %q does not contain the expected printed value", out)
	}
}

func TestStartReportsCompileErrorsAndContinues(t *testing.T) {
	out := runREPL(t, "let\nlet z = 5\nio.println(z)\nexit\n")

	if !strings.Contains(out, "5") {
		t.Fatalf("REPL did not recover after a bad line; output: %q", out)
	}
}
