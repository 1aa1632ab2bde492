package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"ride-token-ledger/internal/core/domain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var transferEventSignature = gethcrypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// EVMClient is the subset of the Ethereum RPC used by the verifier.
// *ethclient.Client satisfies it.
type EVMClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
}

// Dial initialises an EVM RPC client for the provided endpoint.
func Dial(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("chain rpc endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// Verifier implements ports.DepositVerifier against an Ethereum node. It
// confirms that a transaction carries an ERC-20 Transfer of the deposit token
// into the treasury address, and reports how deep the block is.
type Verifier struct {
	client        EVMClient
	tokenAddress  common.Address
	treasury      common.Address
	tokenDecimals int32
	log           zerolog.Logger
}

// NewVerifier constructs a deposit verifier.
func NewVerifier(client EVMClient, tokenAddress, treasury common.Address, tokenDecimals int32, log zerolog.Logger) *Verifier {
	return &Verifier{
		client:        client,
		tokenAddress:  tokenAddress,
		treasury:      treasury,
		tokenDecimals: tokenDecimals,
		log:           log,
	}
}

// Verify looks up the transaction and returns the normalized deposit.
// Policy decisions (minimum amount, minimum confirmations) belong to the
// caller; Verify only answers what happened on chain.
func (v *Verifier) Verify(ctx context.Context, txHash string) (*domain.VerifiedDeposit, error) {
	if !domain.ValidTxHash(txHash) {
		return nil, fmt.Errorf("malformed tx hash %q", txHash)
	}
	hash := common.HexToHash(txHash)

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDepositNotFound, txHash)
		}
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt == nil || receipt.BlockNumber == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDepositNotFound, txHash)
	}

	deposit := &domain.VerifiedDeposit{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		ObservedAt:  time.Now().UTC(),
	}

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		v.log.Debug().Str("tx_hash", txHash).Msg("deposit transaction reverted")
		return deposit, nil
	}

	amount, found := v.treasuryTransferAmount(receipt)
	if !found {
		v.log.Debug().Str("tx_hash", txHash).Msg("no treasury transfer in receipt")
		return deposit, nil
	}

	confirmations, err := v.confirmations(ctx, receipt.BlockNumber)
	if err != nil {
		return nil, err
	}

	deposit.Amount = amount
	deposit.Confirmations = confirmations
	deposit.IsValid = true
	return deposit, nil
}

// treasuryTransferAmount scans the receipt logs for an ERC-20 Transfer of the
// deposit token into the treasury, summing in case the transfer was split.
func (v *Verifier) treasuryTransferAmount(receipt *gethtypes.Receipt) (decimal.Decimal, bool) {
	total := decimal.Zero
	found := false
	for _, log := range receipt.Logs {
		if log == nil || log.Address != v.tokenAddress {
			continue
		}
		if len(log.Topics) < 3 || log.Topics[0] != transferEventSignature {
			continue
		}
		to := common.BytesToAddress(log.Topics[2].Bytes())
		if to != v.treasury {
			continue
		}
		raw := new(big.Int).SetBytes(log.Data)
		total = total.Add(decimal.NewFromBigInt(raw, -v.tokenDecimals))
		found = true
	}
	return total, found
}

func (v *Verifier) confirmations(ctx context.Context, blockNumber *big.Int) (uint64, error) {
	header, err := v.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("fetch head: %w", err)
	}
	if header == nil || header.Number == nil {
		return 0, fmt.Errorf("head block metadata unavailable")
	}
	if header.Number.Cmp(blockNumber) < 0 {
		return 0, nil
	}
	confirmed := new(big.Int).Sub(header.Number, blockNumber)
	confirmed.Add(confirmed, big.NewInt(1))
	return confirmed.Uint64(), nil
}
