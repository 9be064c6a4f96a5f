package main

import (
	"fmt"
	"os"
	"path/filepath"

	"dhlx/pkg/ddl"
	"dhlx/pkg/ddlyaml"
	"dhlx/pkg/diag"
	"dhlx/pkg/encode"
)

// build is one compilation: an interpreter with the configured libraries
// loaded and the formats its output is encoded to.
type build struct {
	cfg     Config
	log     *diag.Logger
	ip      *ddl.Interp
	formats []encode.Format
}

func newBuild(cfg Config, log *diag.Logger) (*build, error) {
	formats, err := cfg.formats()
	if err != nil {
		return nil, err
	}
	ip := ddl.New(cfg.options(), log)
	libs := cfg.libraries(formats)
	ns, err := ddlyaml.Load(ip, libs...)
	if err != nil {
		return nil, err
	}
	log.Debugf("loaded libraries %v (namespace %q)", libs, ns)
	return &build{cfg: cfg, log: log, ip: ip, formats: formats}, nil
}

// run interprets files in order. Reported errors are counted by the
// interpreter; only a fatal error or an exhausted error budget stops the
// build here.
func (b *build) run(files []string) error {
	for _, f := range files {
		b.log.Debugf("compiling %s", f)
		if err := b.ip.RunFile(f); err != nil {
			return err
		}
	}
	return nil
}

func (b *build) failed() error {
	if n := b.ip.Errors(); n > 0 {
		return fmt.Errorf("%d errors reported", n)
	}
	return nil
}

// output is one file the build writes.
type output struct {
	Path string
	Data []byte
}

// outputs encodes every format. Lumps go to <out>/<map>/<LUMP>, or to
// <out>/<map>/<format>/<LUMP> when several formats are written. Script
// buffers go to <out>/<NAME> once, unless a selected format embeds them.
func (b *build) outputs() ([]output, error) {
	mapDir := filepath.Join(b.cfg.OutDir, b.cfg.MapName)
	opts := encode.Options{Namespace: b.cfg.Namespace, Precision: b.cfg.Precision}
	var out []output
	var embeds encode.Format
	for _, f := range b.formats {
		lumps, err := f.Encode(b.ip, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		dir := mapDir
		if len(b.formats) > 1 {
			dir = filepath.Join(mapDir, f.Name)
		}
		for _, l := range lumps {
			out = append(out, output{Path: filepath.Join(dir, l.Name), Data: l.Data})
		}
		embeds.Embeds = append(embeds.Embeds, f.Embeds...)
	}
	for _, l := range encode.ScriptFiles(b.ip, embeds) {
		out = append(out, output{Path: filepath.Join(b.cfg.OutDir, l.Name), Data: l.Data})
	}
	return out, nil
}

func writeOutputs(outs []output) error {
	for _, o := range outs {
		if err := os.MkdirAll(filepath.Dir(o.Path), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", filepath.Dir(o.Path), err)
		}
		if err := os.WriteFile(o.Path, o.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", o.Path, err)
		}
	}
	return nil
}

// compile runs the whole pipeline for files. With dryRun set the outputs
// are listed on stdout instead of written. A map with reported errors is
// still written, and the error count is returned afterwards.
func compile(cfg Config, log *diag.Logger, files []string, dryRun bool) (*build, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no source files given")
	}
	b, err := newBuild(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := b.run(files); err != nil {
		return b, fmt.Errorf("%w, nothing written", err)
	}
	outs, err := b.outputs()
	if err != nil {
		return b, err
	}
	if dryRun {
		dryRunOutputs(os.Stdout, outs)
		return b, b.failed()
	}
	if err := writeOutputs(outs); err != nil {
		return b, err
	}
	log.Infof("wrote %d files for %s", len(outs), cfg.MapName)
	return b, b.failed()
}
