package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const diamond = "../../loader/testdata/diamond.yaml"

func TestRun_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"diamond:", ".cfi_remember_state", ".cfi_restore_state", ".cfi_endproc"}},
		{"listing", []string{"# begin diamond", "# jcc .L2", "# .L2:"}},
		{"dwarf", []string{"diamond: 0c 07 08"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			ok, err := run(context.Background(), &out, zap.NewNop(), options{inFile: diamond, format: tt.format})
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Fatal("run reported failure")
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, out.String())
				}
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts options
		want string
	}{
		{"format", options{inFile: diamond, format: "elf"}, "unknown format"},
		{"arch", options{inFile: diamond, format: "text", archName: "sparc"}, "architecture"},
		{"func", options{inFile: diamond, format: "text", funcName: "nope"}, `function "nope" not found`},
		{"file", options{inFile: "missing.yaml", format: "text"}, "missing.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(context.Background(), &bytes.Buffer{}, zap.NewNop(), tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRun_Werror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swap.yaml")
	src := `functions:
  - name: swap
    blocks:
      - insns:
          - {op: begin}
          - {op: push, src: "%rbx"}
          - {op: push, src: "%rbp"}
          - {op: pop, dst: "%rbx"}
          - {op: pop, dst: "%rbp"}
          - {op: ret}
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	ok, err := run(context.Background(), &bytes.Buffer{}, zap.NewNop(), options{inFile: path, format: "text"})
	if err != nil || !ok {
		t.Fatalf("warnings alone should not fail: ok=%v err=%v", ok, err)
	}

	ok, err = run(context.Background(), &bytes.Buffer{}, zap.NewNop(), options{inFile: path, format: "text", werror: true})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("-werror should turn warnings into failure")
	}
}

func TestRun_FailedFunction(t *testing.T) {
	var out bytes.Buffer
	ok, err := run(context.Background(), &out, zap.NewNop(), options{
		inFile: "../../loader/testdata/frame.yaml",
		format: "text",
	})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("realign should fail the run")
	}
	if !strings.Contains(out.String(), "frame:") || strings.Contains(out.String(), "realign:") {
		t.Errorf("only the successful function should be printed:\n%s", out.String())
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := run(ctx, &bytes.Buffer{}, zap.NewNop(), options{inFile: diamond, format: "text"})
	if err == nil {
		t.Error("cancelled context should abort")
	}
}
