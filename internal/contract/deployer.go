package contract

import (
	"context"
	"fmt"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/logging"
)

// DeployGas is the gas limit for contract creation.
const DeployGas = 3_000_000

// Deployer creates the purchase ledger contract bound to a token.
type Deployer struct {
	Client chain.Client
	Loader *Loader
	Token  chain.TokenID
	// TokenAddress overrides the token's derived solidity address.
	TokenAddress string
	Logger       *logging.Logger
}

// Deploy compiles if needed and creates the contract with constructor
// arguments (token address, token number).
func (d *Deployer) Deploy(ctx context.Context) (chain.ContractID, error) {
	bytecode, err := d.Loader.GetOrCompile(ctx)
	if err != nil {
		return "", err
	}

	tokenAddr := d.TokenAddress
	if tokenAddr == "" {
		tokenAddr, err = chain.SolidityAddress(chain.AccountID(d.Token))
		if err != nil {
			return "", err
		}
	}
	tokenNum, err := chain.EntityNum(string(d.Token))
	if err != nil {
		return "", err
	}

	receipt, err := d.Client.DeployContract(ctx, chain.ContractDeploy{
		Bytecode:    bytecode,
		Gas:         DeployGas,
		Constructor: chain.NewContractParams().AddAddress(tokenAddr).AddUint256(tokenNum),
	})
	if err != nil {
		return "", fmt.Errorf("deploy contract: %w", err)
	}
	if !receipt.Succeeded() || receipt.ContractID == "" {
		return "", fmt.Errorf("deploy contract: status %s", receipt.Status)
	}

	d.Logger.WithContext(ctx).WithField("contract_id", receipt.ContractID).Info("Contract deployed")
	return receipt.ContractID, nil
}
