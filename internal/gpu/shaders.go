//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/gogpu/life"
	"github.com/gogpu/naga"
)

// Entry points of the two programs.
const (
	computeEntryPoint  = "computeMain"
	vertexEntryPoint   = "vertexMain"
	fragmentEntryPoint = "fragmentMain"
)

//go:embed shaders/simulation.wgsl
var simulationShaderTemplate string

//go:embed shaders/cell.wgsl
var cellShaderSource string

var simulationTemplate = template.Must(template.New("simulation").Parse(simulationShaderTemplate))

// SimulationShader returns the compute program for the given workgroup
// extent and boundary policy.
func SimulationShader(workgroupSize int, boundary life.Boundary) (string, error) {
	if workgroupSize <= 0 {
		return "", fmt.Errorf("workgroup size must be positive, got %d", workgroupSize)
	}
	var sb strings.Builder
	err := simulationTemplate.Execute(&sb, struct {
		WorkgroupSize int
		Wrap          bool
	}{workgroupSize, boundary == life.Toroidal})
	if err != nil {
		return "", fmt.Errorf("render simulation shader: %w", err)
	}
	return sb.String(), nil
}

// CellShader returns the vertex and fragment program.
func CellShader() string { return cellShaderSource }

// ValidateShader compiles src to SPIR-V and discards the result.
func ValidateShader(label, src string) error {
	if src == "" {
		return fmt.Errorf("%s shader source is empty", label)
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return fmt.Errorf("compile %s shader: %w", label, err)
	}
	if len(spirv) == 0 {
		return fmt.Errorf("compile %s shader: empty SPIR-V", label)
	}
	return nil
}
