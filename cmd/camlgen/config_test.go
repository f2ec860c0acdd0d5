package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "camlgen.yaml")
	yml := "wit: shapes.json\npackage: shapes\nml: shapes.ml\ntypes:\n  - point\n  - shape\ngo_types: false\n"
	if err := os.WriteFile(cfg, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		path  string
		env   map[string]string
		flags map[string]any
		want  options
	}{
		{
			name: "defaults",
			want: options{pkg: "bindings", types: true},
		},
		{
			name: "file",
			path: cfg,
			want: options{witFile: "shapes.json", pkg: "shapes", mlFile: "shapes.ml", names: []string{"point", "shape"}},
		},
		{
			name: "env over file",
			path: cfg,
			env:  map[string]string{"CAMLGEN_PACKAGE": "geo", "CAMLGEN_TYPES": "point, event"},
			want: options{witFile: "shapes.json", pkg: "geo", mlFile: "shapes.ml", names: []string{"point", "event"}},
		},
		{
			name:  "flags over env",
			path:  cfg,
			env:   map[string]string{"CAMLGEN_OUT": "env.go"},
			flags: map[string]any{keyOut: "flag.go", keyTypes: []string{"shape"}},
			want:  options{witFile: "shapes.json", pkg: "shapes", out: "flag.go", mlFile: "shapes.ml", names: []string{"shape"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got, err := loadOptions(tt.path, tt.flags)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(options{})); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadOptions_MissingFile(t *testing.T) {
	if _, err := loadOptions(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Error("expected error for a missing config file")
	}
}

func TestSetFlags(t *testing.T) {
	fs := flag.NewFlagSet("camlgen", flag.ContinueOnError)
	fs.String("wit", "", "")
	fs.String("pkg", "bindings", "")
	fs.Bool("types", true, "")
	fs.Bool("list", false, "")
	var names stringList
	fs.Var(&names, "type", "")

	if err := fs.Parse([]string{"-pkg", "geo", "-types=false", "-type", "point", "-type", "shape", "-list"}); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		keyPackage: "geo",
		keyGoTypes: false,
		keyTypes:   []string{"point", "shape"},
	}
	if diff := cmp.Diff(want, setFlags(fs)); diff != "" {
		t.Errorf("setFlags mismatch (-want +got):\n%s", diff)
	}
}
