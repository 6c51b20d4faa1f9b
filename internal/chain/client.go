// Package chain reads the authoritative question list from the betting
// contract over JSON-RPC. It is strictly read-only: the contract's own logic
// (question creation, settlement) lives on-chain and is out of scope here.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chainbets/chainbet/internal/domain"
)

const methodGetQuestions = "getQuestions"

// questionsABI covers the single view we call. getQuestions returns the full
// question list as parallel arrays, in ascending question-id order.
const questionsABI = `[
	{
		"inputs": [],
		"name": "getQuestions",
		"outputs": [
			{"name": "ids", "type": "uint256[]"},
			{"name": "fingerprints", "type": "uint128[]"},
			{"name": "expirations", "type": "uint256[]"},
			{"name": "creators", "type": "address[]"},
			{"name": "totals", "type": "uint256[]"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Client implements domain.QuestionReader against the question contract.
type Client struct {
	eth      *ethclient.Client
	contract common.Address
	abi      abi.ABI
}

// NewClient dials the JSON-RPC endpoint and prepares the contract binding.
func NewClient(ctx context.Context, rpcURL, contractAddr string) (*Client, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("chain: invalid contract address %q", contractAddr)
	}

	parsed, err := abi.JSON(strings.NewReader(questionsABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse abi: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	return &Client{
		eth:      eth,
		contract: common.HexToAddress(contractAddr),
		abi:      parsed,
	}, nil
}

// FetchQuestions calls getQuestions and decodes the result. The returned
// slice preserves the contract's return order; it is not re-sorted locally.
func (c *Client) FetchQuestions(ctx context.Context) ([]domain.ChainQuestion, error) {
	data, err := c.abi.Pack(methodGetQuestions)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", methodGetQuestions, err)
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", methodGetQuestions, err)
	}

	vals, err := c.abi.Unpack(methodGetQuestions, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", methodGetQuestions, err)
	}
	if len(vals) != 5 {
		return nil, fmt.Errorf("chain: %s returned %d values, want 5", methodGetQuestions, len(vals))
	}

	ids, ok0 := vals[0].([]*big.Int)
	fps, ok1 := vals[1].([]*big.Int)
	exps, ok2 := vals[2].([]*big.Int)
	creators, ok3 := vals[3].([]common.Address)
	totals, ok4 := vals[4].([]*big.Int)
	if !ok0 || !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("chain: %s returned unexpected types", methodGetQuestions)
	}

	hexCreators := make([]string, len(creators))
	for i, a := range creators {
		hexCreators[i] = a.Hex()
	}

	questions, err := buildQuestions(ids, fps, exps, hexCreators, totals)
	if err != nil {
		return nil, fmt.Errorf("chain: %s: %w", methodGetQuestions, err)
	}
	return questions, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// buildQuestions zips the contract's parallel arrays into question records.
func buildQuestions(ids, fps, exps []*big.Int, creators []string, totals []*big.Int) ([]domain.ChainQuestion, error) {
	n := len(ids)
	if len(fps) != n || len(exps) != n || len(creators) != n || len(totals) != n {
		return nil, fmt.Errorf(
			"parallel array lengths differ: ids=%d fingerprints=%d expirations=%d creators=%d totals=%d",
			n, len(fps), len(exps), len(creators), len(totals),
		)
	}

	questions := make([]domain.ChainQuestion, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.ChainQuestion{
			Identity:    ids[i].String(),
			Fingerprint: new(big.Int).Set(fps[i]),
			ExpiresAt:   time.Unix(exps[i].Int64(), 0).UTC(),
			Creator:     creators[i],
			TotalStaked: totals[i].Int64(),
		})
	}
	return questions, nil
}

// Compile-time interface check.
var _ domain.QuestionReader = (*Client)(nil)
