package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working root when
// --config is not given.
const DefaultFile = "protocli.hcl"

// DefaultFiles lists the names tried in the working root, in order.
var DefaultFiles = []string{DefaultFile, "protocli.yaml", "protocli.yml"}

// File mirrors the build options in protocli.hcl (or protocli.yaml). Every
// attribute is optional and is overridden by the matching command-line
// option.
//
//	output    = "gen"
//	lang      = "go"
//	jobs      = 4
//	timeout   = "30s"
//	format_go = true
type File struct {
	Output        string `hcl:"output,optional" yaml:"output"`
	Lang          string `hcl:"lang,optional" yaml:"lang"`
	Namespace     string `hcl:"namespace,optional" yaml:"namespace"`
	FileExtension string `hcl:"file_extension,optional" yaml:"file_extension"`
	Layout        string `hcl:"layout,optional" yaml:"layout"`
	Jobs          int    `hcl:"jobs,optional" yaml:"jobs"`
	Timeout       string `hcl:"timeout,optional" yaml:"timeout"`
	Compiler      string `hcl:"compiler,optional" yaml:"compiler"`
	Ledger        string `hcl:"ledger,optional" yaml:"ledger"`
	Report        string `hcl:"report,optional" yaml:"report"`
	FormatGo      bool   `hcl:"format_go,optional" yaml:"format_go"`

	// dir is the directory holding the file; relative paths resolve against it.
	dir string
}

// LoadFile decodes the config file at path. When path is empty the default
// files in root are tried; if none exists a zero File is returned.
func LoadFile(path, root string) (File, error) {
	if path == "" {
		for _, name := range DefaultFiles {
			p := filepath.Join(root, name)
			if _, err := os.Stat(p); err == nil {
				return decodeFile(p)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return File{}, fmt.Errorf("config %s: %w", p, err)
			}
		}
		return File{dir: root}, nil
	}
	if _, err := os.Stat(path); err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	return decodeFile(path)
}

func decodeFile(path string) (File, error) {
	var f File
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(path, &f)
	default:
		// hclsimple picks native syntax or JSON from the extension.
		err = hclsimple.DecodeFile(path, nil, &f)
	}
	if err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	f.dir = abs
	return f, nil
}

func decodeYAML(path string, v any) error {
	r, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// path resolves p against the config file's directory.
func (f File) path(p string) string {
	if p == "" || filepath.IsAbs(p) || f.dir == "" {
		return p
	}
	return filepath.Join(f.dir, p)
}

// executable resolves p like path unless it is a bare name looked up in PATH.
func (f File) executable(p string) string {
	if !strings.ContainsAny(p, `/\`) {
		return p
	}
	return f.path(p)
}
