package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashgraph/hedera-sdk-go/v2"
)

// Client is the ledger surface the service depends on. Calls block until
// consensus. Once a transaction is submitted it cannot be withdrawn, so ctx
// is only honoured before submission.
type Client interface {
	Operator() AccountID

	TransferTokens(ctx context.Context, transfer TokenTransfer) (*Receipt, error)
	AssociateToken(ctx context.Context, account AccountID, token TokenID, key PrivateKey) (*Receipt, error)
	VerifyAccount(ctx context.Context, account AccountID, key PrivateKey) (*Receipt, error)

	CreateToken(ctx context.Context, spec TokenSpec) (*Receipt, error)
	MintToken(ctx context.Context, token TokenID, amount uint64) (*Receipt, error)
	BurnToken(ctx context.Context, token TokenID, amount uint64) (*Receipt, error)
	DeleteToken(ctx context.Context, token TokenID) (*Receipt, error)
	TokenSupply(ctx context.Context, token TokenID) (uint64, error)
	AccountBalance(ctx context.Context, account AccountID) (*Balance, error)

	ExecuteContract(ctx context.Context, call ContractCall) (*Receipt, error)
	CallContract(ctx context.Context, call ContractCall) (*ContractResult, error)
	DeployContract(ctx context.Context, deploy ContractDeploy) (*Receipt, error)
}

// Config holds client configuration.
type Config struct {
	Network     string // mainnet, testnet or previewnet
	OperatorID  string
	OperatorKey string
}

// HederaClient implements Client with the Hedera SDK.
type HederaClient struct {
	mu          sync.Mutex
	client      *hedera.Client
	network     string
	operatorID  hedera.AccountID
	operatorKey hedera.PrivateKey
}

// NewHederaClient connects to the named network with the operator identity.
func NewHederaClient(cfg Config) (*HederaClient, error) {
	if cfg.OperatorID == "" || cfg.OperatorKey == "" {
		return nil, fmt.Errorf("operator account and key required")
	}
	network := cfg.Network
	if network == "" {
		network = "testnet"
	}

	operatorID, err := hedera.AccountIDFromString(cfg.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("parse operator account: %w", err)
	}
	operatorKey, err := hedera.PrivateKeyFromString(cfg.OperatorKey)
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}

	client, err := hedera.ClientForName(network)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", network, err)
	}
	client.SetOperator(operatorID, operatorKey)

	return &HederaClient{
		client:      client,
		network:     network,
		operatorID:  operatorID,
		operatorKey: operatorKey,
	}, nil
}

// Close releases network connections.
func (c *HederaClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client.Close()
}

func (c *HederaClient) Operator() AccountID {
	return AccountID(c.operatorID.String())
}

// =============================================================================
// Transfers
// =============================================================================

// TransferTokens submits all legs as one atomic transfer, signed by every
// key in transfer.Signers.
func (c *HederaClient) TransferTokens(ctx context.Context, transfer TokenTransfer) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if transfer.Sum() != 0 {
		return nil, fmt.Errorf("transfer legs sum to %d, want 0", transfer.Sum())
	}
	tokenID, err := hedera.TokenIDFromString(string(transfer.Token))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	tx := hedera.NewTransferTransaction()
	for _, leg := range transfer.Legs {
		accountID, err := hedera.AccountIDFromString(string(leg.Account))
		if err != nil {
			return nil, fmt.Errorf("parse account %s: %w", leg.Account, err)
		}
		tx.AddTokenTransfer(tokenID, accountID, leg.Amount)
	}

	frozen, err := tx.FreezeWith(c.client)
	if err != nil {
		return nil, fmt.Errorf("freeze transfer: %w", err)
	}
	for _, signer := range transfer.Signers {
		key, err := signer.sdkKey()
		if err != nil {
			return nil, err
		}
		frozen = frozen.Sign(key)
	}

	resp, err := frozen.Execute(c.client)
	return c.receipt("transfer", resp, err)
}

// AssociateToken lets account hold token. The account key pays and signs.
func (c *HederaClient) AssociateToken(ctx context.Context, account AccountID, token TokenID, key PrivateKey) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	accountID, err := hedera.AccountIDFromString(string(account))
	if err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	tokenID, err := hedera.TokenIDFromString(string(token))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	sdkKey, err := key.sdkKey()
	if err != nil {
		return nil, err
	}

	frozen, err := hedera.NewTokenAssociateTransaction().
		SetAccountID(accountID).
		SetTokenIDs(tokenID).
		FreezeWith(c.client)
	if err != nil {
		return nil, fmt.Errorf("freeze associate: %w", err)
	}

	resp, err := frozen.Sign(sdkKey).Execute(c.client)
	return c.receipt("associate", resp, err)
}

// VerifyAccount submits a zero value self transfer paid by account, which
// only reaches consensus when key controls account.
func (c *HederaClient) VerifyAccount(ctx context.Context, account AccountID, key PrivateKey) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	accountID, err := hedera.AccountIDFromString(string(account))
	if err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	sdkKey, err := key.sdkKey()
	if err != nil {
		return nil, err
	}

	probe, err := hedera.ClientForName(c.network)
	if err != nil {
		return nil, fmt.Errorf("create probe client: %w", err)
	}
	defer probe.Close()
	probe.SetOperator(accountID, sdkKey)

	resp, err := hedera.NewTransferTransaction().
		AddHbarTransfer(accountID, hedera.NewHbar(0)).
		Execute(probe)
	if err != nil {
		return nil, wrapStatus("verify", "", err)
	}
	receipt, err := resp.GetReceipt(probe)
	if err != nil {
		return nil, wrapStatus("verify", resp.TransactionID.String(), err)
	}
	return &Receipt{Status: receipt.Status.String(), TransactionID: resp.TransactionID.String()}, nil
}

// =============================================================================
// Token administration
// =============================================================================

// CreateToken creates a fungible token with the operator as treasury.
func (c *HederaClient) CreateToken(ctx context.Context, spec TokenSpec) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pub := c.operatorKey.PublicKey()
	frozen, err := hedera.NewTokenCreateTransaction().
		SetTokenName(spec.Name).
		SetTokenSymbol(spec.Symbol).
		SetDecimals(spec.Decimals).
		SetInitialSupply(spec.InitialSupply).
		SetTreasuryAccountID(c.operatorID).
		SetAdminKey(pub).
		SetSupplyKey(pub).
		FreezeWith(c.client)
	if err != nil {
		return nil, fmt.Errorf("freeze token create: %w", err)
	}

	resp, err := frozen.Sign(c.operatorKey).Execute(c.client)
	return c.receipt("create token", resp, err)
}

func (c *HederaClient) MintToken(ctx context.Context, token TokenID, amount uint64) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokenID, err := hedera.TokenIDFromString(string(token))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	frozen, err := hedera.NewTokenMintTransaction().
		SetTokenID(tokenID).
		SetAmount(amount).
		FreezeWith(c.client)
	if err != nil {
		return nil, fmt.Errorf("freeze mint: %w", err)
	}
	resp, err := frozen.Sign(c.operatorKey).Execute(c.client)
	return c.receipt("mint", resp, err)
}

func (c *HederaClient) BurnToken(ctx context.Context, token TokenID, amount uint64) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokenID, err := hedera.TokenIDFromString(string(token))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	frozen, err := hedera.NewTokenBurnTransaction().
		SetTokenID(tokenID).
		SetAmount(amount).
		FreezeWith(c.client)
	if err != nil {
		return nil, fmt.Errorf("freeze burn: %w", err)
	}
	resp, err := frozen.Sign(c.operatorKey).Execute(c.client)
	return c.receipt("burn", resp, err)
}

func (c *HederaClient) DeleteToken(ctx context.Context, token TokenID) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokenID, err := hedera.TokenIDFromString(string(token))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	frozen, err := hedera.NewTokenDeleteTransaction().
		SetTokenID(tokenID).
		FreezeWith(c.client)
	if err != nil {
		return nil, fmt.Errorf("freeze delete: %w", err)
	}
	resp, err := frozen.Sign(c.operatorKey).Execute(c.client)
	return c.receipt("delete token", resp, err)
}

func (c *HederaClient) TokenSupply(ctx context.Context, token TokenID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tokenID, err := hedera.TokenIDFromString(string(token))
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	info, err := hedera.NewTokenInfoQuery().SetTokenID(tokenID).Execute(c.client)
	if err != nil {
		return 0, wrapStatus("token info", "", err)
	}
	return info.TotalSupply, nil
}

func (c *HederaClient) AccountBalance(ctx context.Context, account AccountID) (*Balance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	accountID, err := hedera.AccountIDFromString(string(account))
	if err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	balance, err := hedera.NewAccountBalanceQuery().SetAccountID(accountID).Execute(c.client)
	if err != nil {
		return nil, wrapStatus("balance", "", err)
	}

	out := &Balance{
		Tinybars: balance.Hbars.AsTinybar(),
		Tokens:   make(map[TokenID]uint64, len(balance.Token)),
	}
	for id, amount := range balance.Token {
		out.Tokens[TokenID(id.String())] = amount
	}
	return out, nil
}

// =============================================================================
// Contracts
// =============================================================================

func (c *HederaClient) ExecuteContract(ctx context.Context, call ContractCall) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contractID, err := hedera.ContractIDFromString(string(call.Contract))
	if err != nil {
		return nil, fmt.Errorf("parse contract: %w", err)
	}
	params, err := call.Params.toSDK()
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", call.Function, err)
	}

	resp, err := hedera.NewContractExecuteTransaction().
		SetContractID(contractID).
		SetGas(call.Gas).
		SetFunction(call.Function, params).
		Execute(c.client)
	return c.receipt(call.Function, resp, err)
}

func (c *HederaClient) CallContract(ctx context.Context, call ContractCall) (*ContractResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contractID, err := hedera.ContractIDFromString(string(call.Contract))
	if err != nil {
		return nil, fmt.Errorf("parse contract: %w", err)
	}
	params, err := call.Params.toSDK()
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", call.Function, err)
	}

	result, err := hedera.NewContractCallQuery().
		SetContractID(contractID).
		SetGas(call.Gas).
		SetFunction(call.Function, params).
		Execute(c.client)
	if err != nil {
		return nil, wrapStatus(call.Function, "", err)
	}
	return &ContractResult{Raw: result.ContractCallResult, GasUsed: result.GasUsed}, nil
}

// DeployContract uploads bytecode and creates the contract in one flow.
func (c *HederaClient) DeployContract(ctx context.Context, deploy ContractDeploy) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := deploy.Constructor.toSDK()
	if err != nil {
		return nil, fmt.Errorf("encode constructor arguments: %w", err)
	}

	resp, err := hedera.NewContractCreateFlow().
		SetBytecodeWithString(deploy.Bytecode).
		SetGas(deploy.Gas).
		SetConstructorParameters(params).
		Execute(c.client)
	return c.receipt("deploy", resp, err)
}

// =============================================================================
// Helpers
// =============================================================================

func (c *HederaClient) receipt(op string, resp hedera.TransactionResponse, err error) (*Receipt, error) {
	if err != nil {
		return nil, wrapStatus(op, "", err)
	}
	txID := resp.TransactionID.String()

	receipt, err := resp.GetReceipt(c.client)
	if err != nil {
		return nil, wrapStatus(op, txID, err)
	}

	out := &Receipt{Status: receipt.Status.String(), TransactionID: txID}
	if receipt.TokenID != nil {
		out.TokenID = TokenID(receipt.TokenID.String())
	}
	if receipt.ContractID != nil {
		out.ContractID = ContractID(receipt.ContractID.String())
	}
	return out, nil
}

// wrapStatus lifts SDK precheck and receipt failures into *StatusError.
func wrapStatus(op, txID string, err error) error {
	var precheck hedera.ErrHederaPreCheckStatus
	if errors.As(err, &precheck) {
		return &StatusError{Op: op, Status: precheck.Status.String(), TransactionID: txID, Err: err}
	}
	var receipt hedera.ErrHederaReceiptStatus
	if errors.As(err, &receipt) {
		return &StatusError{Op: op, Status: receipt.Status.String(), TransactionID: txID, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
