package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"proofpass/pkg/domain"
)

// Badge registry ABI, only the functions and events we use.
const registryABI = `[
{"inputs":[{"internalType":"string","name":"name","type":"string"},{"internalType":"string","name":"symbol","type":"string"}],"name":"createCollection","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"collectionId","type":"uint256"},{"internalType":"string","name":"metadata","type":"string"}],"name":"mint","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"collectionId","type":"uint256"},{"internalType":"uint256","name":"serial","type":"uint256"},{"internalType":"address","name":"to","type":"address"}],"name":"transferFrom","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"collectionId","type":"uint256"},{"internalType":"uint256","name":"serial","type":"uint256"}],"name":"ownerOf","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"collectionId","type":"uint256"}],"name":"CollectionCreated","type":"event"},
{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"collectionId","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"serial","type":"uint256"}],"name":"BadgeMinted","type":"event"}
]`

const (
	eventCollectionCreated = "CollectionCreated"
	eventBadgeMinted       = "BadgeMinted"
)

// chainClient is the subset of ethclient.Client the EVM ledger needs.
type chainClient interface {
	bind.DeployBackend
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EVMConfig locates the badge registry contract and the signing account.
type EVMConfig struct {
	ContractAddress string
	PrivateKey      string
	ChainID         int64
}

// EVM drives a badge registry contract on an EVM chain. The signing account
// owns every collection it creates, receives minted units, and transfers
// them on to students.
type EVM struct {
	client  chainClient
	address common.Address
	abi     abi.ABI
	key     *ecdsa.PrivateKey
	from    common.Address
	signer  types.Signer

	// one in-flight transaction at a time keeps nonces in order
	sendMu sync.Mutex
}

// DialEVM connects to rpcURL and returns a ledger for the configured contract.
func DialEVM(ctx context.Context, rpcURL string, cfg EVMConfig) (*EVM, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum node: %w", err)
	}
	return NewEVM(client, cfg)
}

// NewEVM creates an EVM ledger over an existing client.
func NewEVM(client chainClient, cfg EVMConfig) (*EVM, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	parsedABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &EVM{
		client:  client,
		address: common.HexToAddress(cfg.ContractAddress),
		abi:     parsedABI,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.LatestSignerForChainID(big.NewInt(cfg.ChainID)),
	}, nil
}

// Account returns the signing account address.
func (e *EVM) Account() string {
	return e.from.Hex()
}

func (e *EVM) CreateCollection(ctx context.Context, name, symbol string) (domain.CollectionID, error) {
	receipt, err := e.transact(ctx, "createCollection", name, symbol)
	if err != nil {
		return "", err
	}
	values, err := e.findEvent(receipt, eventCollectionCreated)
	if err != nil {
		return "", err
	}
	id, ok := values[0].(*big.Int)
	if !ok {
		return "", fmt.Errorf("unexpected %s payload", eventCollectionCreated)
	}
	return domain.CollectionID(id.String()), nil
}

func (e *EVM) Mint(ctx context.Context, collectionID domain.CollectionID, contentRef domain.ContentID) (domain.Serial, error) {
	cid, err := parseUint(collectionID.String())
	if err != nil {
		return "", fmt.Errorf("collection %q: %w", collectionID, err)
	}
	receipt, err := e.transact(ctx, "mint", cid, contentRef.String())
	if err != nil {
		return "", err
	}
	values, err := e.findEvent(receipt, eventBadgeMinted)
	if err != nil {
		return "", err
	}
	serial, ok := values[1].(*big.Int)
	if !ok {
		return "", fmt.Errorf("unexpected %s payload", eventBadgeMinted)
	}
	return domain.Serial(serial.String()), nil
}

func (e *EVM) Transfer(ctx context.Context, collectionID domain.CollectionID, serial domain.Serial, to string) error {
	if !common.IsHexAddress(to) {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, to)
	}
	cid, err := parseUint(collectionID.String())
	if err != nil {
		return fmt.Errorf("collection %q: %w", collectionID, err)
	}
	sn, err := parseUint(serial.String())
	if err != nil {
		return fmt.Errorf("serial %q: %w", serial, err)
	}
	_, err = e.transact(ctx, "transferFrom", cid, sn, common.HexToAddress(to))
	return err
}

// Owner calls ownerOf on the registry.
func (e *EVM) Owner(ctx context.Context, collectionID domain.CollectionID, serial domain.Serial) (string, error) {
	cid, err := parseUint(collectionID.String())
	if err != nil {
		return "", fmt.Errorf("collection %q: %w", collectionID, err)
	}
	sn, err := parseUint(serial.String())
	if err != nil {
		return "", fmt.Errorf("serial %q: %w", serial, err)
	}
	callData, err := e.abi.Pack("ownerOf", cid, sn)
	if err != nil {
		return "", fmt.Errorf("failed to pack call data: %w", err)
	}
	result, err := e.client.CallContract(ctx, ethereum.CallMsg{
		To:   &e.address,
		Data: callData,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call ownerOf: %w", err)
	}
	var owner common.Address
	if err := e.abi.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return "", fmt.Errorf("failed to unpack result: %w", err)
	}
	return owner.Hex(), nil
}

// transact signs and sends a contract call, then waits for its receipt. A
// mined transaction with a failed status is reported as ErrTransactionFailed.
func (e *EVM) transact(ctx context.Context, method string, args ...any) (*types.Receipt, error) {
	callData, err := e.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	gasLimit, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: e.from,
		To:   &e.address,
		Data: callData,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas for %s: %w", method, err)
	}

	tx := types.NewTransaction(nonce, e.address, big.NewInt(0), gasLimit, gasPrice, callData)
	signed, err := types.SignTx(tx, e.signer, e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", method, err)
	}
	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}
	receipt, err := bind.WaitMined(ctx, e.client, signed)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s %s: %w", method, signed.Hash().Hex(), ErrTransactionFailed)
	}
	return receipt, nil
}

func (e *EVM) findEvent(receipt *types.Receipt, name string) ([]any, error) {
	event := e.abi.Events[name]
	for _, lg := range receipt.Logs {
		if lg.Address != e.address || len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		values, err := e.abi.Unpack(name, lg.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack %s: %w", name, err)
		}
		return values, nil
	}
	return nil, fmt.Errorf("receipt %s has no %s log", receipt.TxHash.Hex(), name)
}

func parseUint(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("not an unsigned integer")
	}
	return n, nil
}
