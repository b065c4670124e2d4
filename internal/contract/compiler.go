// Package contract compiles, caches and deploys the purchase ledger contract.
package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tidwall/gjson"
)

// Source is a single Solidity file and the contract to extract from it.
type Source struct {
	FileName     string
	ContractName string
	Content      string
}

// Artifact is the compiled form of a contract.
type Artifact struct {
	Bytecode string // hex, no 0x prefix
	ABI      []byte
	Warnings []string
}

// Compiler turns Solidity source into an Artifact.
type Compiler interface {
	Compile(ctx context.Context, src Source) (*Artifact, error)
}

// CompileError lists the error severity diagnostics of a failed compilation.
type CompileError struct {
	Messages []string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("contract compilation failed with %d error(s): %s", len(e.Messages), strings.Join(e.Messages, "; "))
}

// SolcCompiler runs solc in standard JSON mode.
type SolcCompiler struct {
	Path string

	// run executes solc with input on stdin. Replaced in tests.
	run func(ctx context.Context, path string, input []byte) ([]byte, error)
}

// NewSolcCompiler uses the solc binary at path, or "solc" from PATH.
func NewSolcCompiler(path string) *SolcCompiler {
	if path == "" {
		path = "solc"
	}
	return &SolcCompiler{Path: path, run: execSolc}
}

type standardInput struct {
	Language string                       `json:"language"`
	Sources  map[string]map[string]string `json:"sources"`
	Settings struct {
		OutputSelection map[string]map[string][]string `json:"outputSelection"`
	} `json:"settings"`
}

// Compile implements Compiler.
func (c *SolcCompiler) Compile(ctx context.Context, src Source) (*Artifact, error) {
	input := standardInput{
		Language: "Solidity",
		Sources: map[string]map[string]string{
			src.FileName: {"content": src.Content},
		},
	}
	input.Settings.OutputSelection = map[string]map[string][]string{
		"*": {"*": {"abi", "evm.bytecode"}},
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal solc input: %w", err)
	}

	out, err := c.run(ctx, c.Path, payload)
	if err != nil {
		return nil, err
	}
	return ParseStandardOutput(out, src.FileName, src.ContractName)
}

// ParseStandardOutput extracts a contract from solc standard JSON output.
// Any diagnostic with severity "error" fails the whole compilation.
func ParseStandardOutput(out []byte, fileName, contractName string) (*Artifact, error) {
	if !gjson.ValidBytes(out) {
		return nil, fmt.Errorf("solc returned invalid JSON")
	}
	doc := gjson.ParseBytes(out)

	var errs, warnings []string
	doc.Get("errors").ForEach(func(_, diag gjson.Result) bool {
		msg := diag.Get("formattedMessage").String()
		if msg == "" {
			msg = diag.Get("message").String()
		}
		if diag.Get("severity").String() == "error" {
			errs = append(errs, strings.TrimSpace(msg))
		} else {
			warnings = append(warnings, strings.TrimSpace(msg))
		}
		return true
	})
	if len(errs) > 0 {
		return nil, &CompileError{Messages: errs}
	}

	contract := doc.Get("contracts." + gjson.Escape(fileName) + "." + gjson.Escape(contractName))
	if !contract.Exists() {
		return nil, fmt.Errorf("contract %s not found in %s output", contractName, fileName)
	}
	bytecode := contract.Get("evm.bytecode.object").String()
	if bytecode == "" {
		return nil, fmt.Errorf("contract %s has empty bytecode", contractName)
	}

	return &Artifact{
		Bytecode: strings.TrimPrefix(bytecode, "0x"),
		ABI:      []byte(contract.Get("abi").Raw),
		Warnings: warnings,
	}, nil
}

func execSolc(ctx context.Context, path string, input []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, "--standard-json")
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
