package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadFiles builds the CUE files at paths as one instance and compiles it.
// The files must share a directory and package clause.
func LoadFiles(paths ...string) (*Program, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("load: no CUE files given")
	}
	dir := filepath.Dir(paths[0])
	args := make([]string, len(paths))
	for i, p := range paths {
		if filepath.Dir(p) != dir {
			return nil, fmt.Errorf("load: %s is not in %s", p, dir)
		}
		args[i] = filepath.Base(p)
	}
	v, err := buildInstance(dir, args)
	if err != nil {
		return nil, err
	}
	return CompileProgram(v)
}

// LoadDir builds every CUE file of the package in dir and returns the value,
// without compiling it.
func LoadDir(dir string) (cue.Value, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("load: %w", err)
	}
	if !info.IsDir() {
		return cue.Value{}, fmt.Errorf("load: not a directory: %s", dir)
	}
	return buildInstance(dir, []string{"."})
}

func buildInstance(dir string, args []string) (cue.Value, error) {
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("load: no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, formatCUEError(inst.Err)
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}
