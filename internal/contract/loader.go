package contract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/R3E-Network/greeno_layer/internal/logging"
)

// Default names of the purchase ledger contract and its cached outputs.
const (
	DefaultContractName = "TransactionHandler"
	BytecodeFile        = DefaultContractName + ".bin"
	ABIFile             = DefaultContractName + ".abi.json"
)

// Loader returns cached bytecode, compiling the source on a miss.
type Loader struct {
	Compiler     Compiler
	Cache        ArtifactCache
	SourcePath   string
	ContractName string
	Logger       *logging.Logger
}

// GetOrCompile returns hex bytecode for the contract. A missing or empty
// cache entry triggers compilation; compile failures are returned as is.
func (l *Loader) GetOrCompile(ctx context.Context) (string, error) {
	cached, err := l.Cache.Get(BytecodeFile)
	switch {
	case err == nil && len(strings.TrimSpace(string(cached))) > 0:
		l.Logger.WithContext(ctx).Debug("Using cached contract bytecode")
		return strings.TrimSpace(string(cached)), nil
	case err != nil && !errors.Is(err, ErrNotCached):
		l.Logger.WithContext(ctx).WithError(err).Warn("Failed to read cached bytecode, recompiling")
	}

	artifact, err := l.compile(ctx)
	if err != nil {
		return "", err
	}

	if err := l.Cache.Put(BytecodeFile, []byte(artifact.Bytecode)); err != nil {
		l.Logger.WithContext(ctx).WithError(err).Warn("Failed to cache contract bytecode")
	}
	if err := l.Cache.Put(ABIFile, artifact.ABI); err != nil {
		l.Logger.WithContext(ctx).WithError(err).Warn("Failed to cache contract ABI")
	}
	return artifact.Bytecode, nil
}

func (l *Loader) compile(ctx context.Context) (*Artifact, error) {
	name := l.ContractName
	if name == "" {
		name = DefaultContractName
	}

	content, err := os.ReadFile(l.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("read contract source: %w", err)
	}

	l.Logger.WithContext(ctx).WithField("source", l.SourcePath).Info("Compiling contract")
	artifact, err := l.Compiler.Compile(ctx, Source{
		FileName:     filepath.Base(l.SourcePath),
		ContractName: name,
		Content:      string(content),
	})
	if err != nil {
		var compileErr *CompileError
		if errors.As(err, &compileErr) {
			for _, msg := range compileErr.Messages {
				l.Logger.WithContext(ctx).WithField("diagnostic", msg).Error("Compilation error")
			}
		}
		return nil, err
	}

	for _, warning := range artifact.Warnings {
		l.Logger.WithContext(ctx).WithField("diagnostic", warning).Warn("Compilation warning")
	}
	return artifact, nil
}
