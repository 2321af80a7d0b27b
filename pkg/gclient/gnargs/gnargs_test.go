package gnargs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tapcart/gclient/pkg/gclient/types"
)

func TestWriteSkipsWhenFieldsUnset(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, &types.DepsSpec{}, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d files, want 0 when gclient_gn_args_file/args unset", len(entries))
	}
}

func TestWriteSerializesEachArgKind(t *testing.T) {
	dir := t.TempDir()
	spec := &types.DepsSpec{
		GClientGNArgsFile: "build/args.gn",
		GClientGNArgs:     []string{"lit", "flag", "absent", "truthy_str"},
	}
	scope := map[string]types.VarsPrimitive{
		"lit":        types.Literal("foo/bar"),
		"flag":       types.Bool(true),
		"truthy_str": types.String("nonempty"),
	}

	if err := Write(dir, spec, scope); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "build", "args.gn"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := string(data)
	want := header +
		`lit = "foo/bar"` + "\n" +
		`flag = true` + "\n" +
		`absent = null` + "\n" +
		`truthy_str = true` + "\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	spec := &types.DepsSpec{
		GClientGNArgsFile: "../escape.gn",
		GClientGNArgs:     []string{"x"},
	}
	if err := Write(dir, spec, map[string]types.VarsPrimitive{"x": types.Bool(true)}); err == nil {
		t.Fatal("Write succeeded, want PathEscape error")
	}
}
