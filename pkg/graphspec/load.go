package graphspec

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"gopkg.in/yaml.v3"
)

// Extensions recognised by Load
var (
	YAMLExtensions = []string{".yaml", ".yml"}
	HCLExtensions  = []string{".hcl"}
)

// IsDescription reports whether path has a recognised description extension
func IsDescription(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range append(YAMLExtensions, HCLExtensions...) {
		if ext == e {
			return true
		}
	}
	return false
}

// Load reads a description file, choosing the format by extension. A
// document without a name takes the file's base name.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read description %s: %w", path, err)
	}

	var doc *Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		doc, err = ParseYAML(data)
	case ".hcl":
		doc, err = ParseHCL(data, path)
	default:
		return nil, fmt.Errorf("unsupported description format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse description %s: %w", path, err)
	}

	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// ParseYAML decodes a YAML description. Unknown keys are rejected.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// hclDocument is the top-level structure of an HCL description
type hclDocument struct {
	Name     string        `hcl:"name,optional"`
	Controls []*hclControl `hcl:"control,block"`
	Nodes    []*hclNode    `hcl:"node,block"`
	Roots    []string      `hcl:"roots"`
}

type hclControl struct {
	Rate   string      `hcl:"rate,optional"`
	Op     string      `hcl:"op,optional"`
	Params []*hclParam `hcl:"param,block"`
}

type hclParam struct {
	Name    string  `hcl:"name,label"`
	Default float64 `hcl:"default,optional"`
	Lag     float64 `hcl:"lag,optional"`
}

type hclNode struct {
	ID      string         `hcl:"id,label"`
	Op      string         `hcl:"op"`
	Rate    string         `hcl:"rate"`
	Special int            `hcl:"special,optional"`
	Outputs hcl.Expression `hcl:"outputs,optional"`
	Inputs  hcl.Expression `hcl:"inputs,optional"`
}

// ParseHCL decodes an HCL description. filename is used in diagnostics.
func ParseHCL(data []byte, filename string) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	var parsed hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, diags
	}

	doc := &Document{Name: parsed.Name}
	for _, c := range parsed.Controls {
		grp := ControlGroup{Rate: c.Rate, Op: c.Op}
		for _, p := range c.Params {
			grp.Params = append(grp.Params, Param{Name: p.Name, Default: float32(p.Default), Lag: float32(p.Lag)})
		}
		doc.Controls = append(doc.Controls, grp)
	}

	for _, n := range parsed.Nodes {
		spec := NodeSpec{ID: n.ID, Op: n.Op, Rate: n.Rate, Special: n.Special}

		outputs, err := evalOutputs(n.Outputs)
		if err != nil {
			return nil, fmt.Errorf("node %q outputs: %w", n.ID, err)
		}
		spec.Outputs = outputs

		if spec.Inputs, err = evalInputs(n.Inputs); err != nil {
			return nil, fmt.Errorf("node %q inputs: %w", n.ID, err)
		}
		doc.Nodes = append(doc.Nodes, spec)
	}

	for _, r := range parsed.Roots {
		doc.Roots = append(doc.Roots, Input(r))
	}
	return doc, nil
}

func evalOutputs(expr hcl.Expression) (*int, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}
	var n int
	if err := gocty.FromCtyValue(v, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// evalInputs flattens a tuple of numbers and strings into input expressions
func evalInputs(expr hcl.Expression) ([]Input, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.CanIterateElements() || v.Type().IsMapType() || v.Type().IsObjectType() {
		return nil, fmt.Errorf("%w: expected a list, got %s", ErrBadInput, v.Type().FriendlyName())
	}

	var inputs []Input
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.IsNull() || !el.IsKnown() {
			return nil, fmt.Errorf("%w: null input", ErrBadInput)
		}
		switch el.Type() {
		case cty.Number:
			f, _ := el.AsBigFloat().Float32()
			inputs = append(inputs, Input(strconv.FormatFloat(float64(f), 'g', -1, 32)))
		case cty.String:
			inputs = append(inputs, Input(el.AsString()))
		default:
			return nil, fmt.Errorf("%w: %s input", ErrBadInput, el.Type().FriendlyName())
		}
	}
	return inputs, nil
}
