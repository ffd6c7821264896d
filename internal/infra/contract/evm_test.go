package contract

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/epicmint/internal/core/domain"
	"github.com/vietddude/epicmint/internal/infra/rpc"
)

const (
	testContract = "0x5A8Ece51ACEeABfAb2D5f0a648273AC632Ca6AED"
	testSigner   = "0x1111111111111111111111111111111111111111"
	testTxHash   = "0x00000000000000000000000000000000000000000000000000000000000000aa"
)

func testABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(EpicNFTABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return parsed
}

// mintedLog builds a raw NewEpicNFTMinted log as returned by a node.
func mintedLog(t *testing.T, tokenID int64, block uint64, logIndex uint64) map[string]any {
	t.Helper()
	event := testABI(t).Events[DefaultMintedEvent]
	data, err := event.Inputs.NonIndexed().Pack(common.HexToAddress(testSigner), big.NewInt(tokenID))
	if err != nil {
		t.Fatalf("pack log: %v", err)
	}
	return map[string]any{
		"address":         strings.ToLower(testContract),
		"topics":          []any{event.ID.Hex()},
		"data":            hexutil.Encode(data),
		"blockNumber":     hexutil.EncodeUint64(block),
		"transactionHash": testTxHash,
		"logIndex":        hexutil.EncodeUint64(logIndex),
	}
}

func newTestFactory(client rpc.Client) *EVMFactory {
	return NewEVMFactory(client, Config{PollInterval: 10 * time.Millisecond}, nil)
}

func TestEVMFactory_BindValidation(t *testing.T) {
	f := newTestFactory(rpc.ClientFunc(func(context.Context, string, []any) (any, error) {
		return nil, nil
	}))

	if _, err := f.Bind("not-an-address", EpicNFTABI, testSigner); err == nil {
		t.Error("expected error for malformed contract address")
	}
	if _, err := f.Bind(testContract, EpicNFTABI, ""); err == nil {
		t.Error("expected error for missing signer")
	}
	if _, err := f.Bind(testContract, "{not json", testSigner); err == nil {
		t.Error("expected error for malformed abi")
	}
	if _, err := f.Bind(testContract, `[]`, testSigner); err == nil {
		t.Error("expected error for abi without the mint methods")
	}
	if _, err := f.Bind(testContract, EpicNFTABI, testSigner); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEVMHandle_TotalMinted(t *testing.T) {
	parsed := testABI(t)
	client := rpc.ClientFunc(func(ctx context.Context, method string, params []any) (any, error) {
		if method != "eth_call" {
			t.Errorf("unexpected method %s", method)
		}
		call := params[0].(map[string]any)
		want := hexutil.Encode(parsed.Methods[DefaultTotalMintedMethod].ID)
		if call["data"] != want {
			t.Errorf("expected selector %s, got %v", want, call["data"])
		}
		if params[1] != "latest" {
			t.Errorf("expected latest block tag, got %v", params[1])
		}
		out, err := parsed.Methods[DefaultTotalMintedMethod].Outputs.Pack(big.NewInt(42))
		if err != nil {
			t.Fatalf("pack output: %v", err)
		}
		return hexutil.Encode(out), nil
	})

	h, err := newTestFactory(client).Bind(testContract, EpicNFTABI, testSigner)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	count, err := h.TotalMinted(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count.Int64() != 42 {
		t.Errorf("expected 42, got %v", count)
	}
}

func TestEVMHandle_MintAndWait(t *testing.T) {
	var mu sync.Mutex
	receiptPolls := 0
	client := rpc.ClientFunc(func(ctx context.Context, method string, params []any) (any, error) {
		switch method {
		case "eth_sendTransaction":
			tx := params[0].(map[string]any)
			if !strings.EqualFold(tx["from"].(string), testSigner) {
				t.Errorf("expected tx from signer, got %v", tx["from"])
			}
			if !strings.EqualFold(tx["to"].(string), testContract) {
				t.Errorf("expected tx to contract, got %v", tx["to"])
			}
			return testTxHash, nil
		case "eth_getTransactionReceipt":
			mu.Lock()
			defer mu.Unlock()
			receiptPolls++
			if receiptPolls < 2 {
				return nil, nil
			}
			return map[string]any{
				"transactionHash": testTxHash,
				"blockNumber":     "0x10",
				"status":          "0x1",
				"logs":            []any{mintedLog(t, 7, 16, 0)},
			}, nil
		}
		t.Errorf("unexpected method %s", method)
		return nil, nil
	})

	h, err := newTestFactory(client).Bind(testContract, EpicNFTABI, testSigner)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	tx, err := h.Mint(context.Background())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tx.Hash() != testTxHash {
		t.Errorf("unexpected hash %s", tx.Hash())
	}

	receipt, err := tx.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !receipt.Succeeded() || receipt.BlockNumber != 16 {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if len(receipt.Minted) != 1 || receipt.Minted[0].TokenID != 7 {
		t.Fatalf("expected token 7 in receipt, got %+v", receipt.Minted)
	}
	if receipt.Minted[0].From != strings.ToLower(testSigner) {
		t.Errorf("unexpected minter %s", receipt.Minted[0].From)
	}
}

func TestEVMHandle_MintRejected(t *testing.T) {
	client := rpc.ClientFunc(func(ctx context.Context, method string, params []any) (any, error) {
		return nil, &rpc.Error{Code: rpc.CodeUserRejected, Message: "User denied transaction signature."}
	})
	h, _ := newTestFactory(client).Bind(testContract, EpicNFTABI, testSigner)

	_, err := h.Mint(context.Background())
	if !rpc.IsUserRejected(err) {
		t.Errorf("expected user rejection to be preserved, got %v", err)
	}
}

func TestEVMHandle_WaitReverted(t *testing.T) {
	client := rpc.ClientFunc(func(ctx context.Context, method string, params []any) (any, error) {
		return map[string]any{"transactionHash": testTxHash, "blockNumber": "0x10", "status": "0x0"}, nil
	})
	h, _ := newTestFactory(client).Bind(testContract, EpicNFTABI, testSigner)

	tx := &pendingTx{handle: h.(*EVMHandle), hash: testTxHash}
	receipt, err := tx.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Succeeded() {
		t.Error("expected reverted receipt")
	}
}

func TestEVMHandle_WaitTransportErrorIsFinal(t *testing.T) {
	calls := 0
	client := rpc.ClientFunc(func(ctx context.Context, method string, params []any) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection reset by peer")
		}
		return map[string]any{"transactionHash": testTxHash, "blockNumber": "0x10", "status": "0x1"}, nil
	})
	h, _ := newTestFactory(client).Bind(testContract, EpicNFTABI, testSigner)

	tx := &pendingTx{handle: h.(*EVMHandle), hash: testTxHash}
	if _, err := tx.Wait(context.Background()); err == nil {
		t.Fatal("expected transport failure to be returned")
	}
	if calls != 1 {
		t.Errorf("expected a single receipt query, got %d", calls)
	}
}

func TestEVMHandle_WaitHonorsContext(t *testing.T) {
	client := rpc.ClientFunc(func(ctx context.Context, method string, params []any) (any, error) {
		return nil, nil
	})
	h, _ := newTestFactory(client).Bind(testContract, EpicNFTABI, testSigner)
	tx := &pendingTx{handle: h.(*EVMHandle), hash: testTxHash}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := tx.Wait(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestEVMHandle_WatchMinted(t *testing.T) {
	var mu sync.Mutex
	head := uint64(100)
	client := rpc.ClientFunc(func(ctx context.Context, method string, params []any) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		switch method {
		case "eth_blockNumber":
			head++
			return hexutil.EncodeUint64(head), nil
		case "eth_getLogs":
			filter := params[0].(map[string]any)
			if filter["fromBlock"] == "0x66" {
				// Same log twice plus a log from an unrelated contract.
				other := mintedLog(t, 9, 102, 1)
				other["address"] = testSigner
				return []any{mintedLog(t, 7, 102, 0), mintedLog(t, 7, 102, 0), other}, nil
			}
			return []any{}, nil
		}
		return nil, nil
	})
	h, _ := newTestFactory(client).Bind(testContract, EpicNFTABI, testSigner)

	got := make(chan domain.TokenMinted, 4)
	sub := h.WatchMinted(func(m domain.TokenMinted) { got <- m })
	defer sub.Unsubscribe()

	select {
	case m := <-got:
		if m.TokenID != 7 {
			t.Errorf("expected token 7, got %d", m.TokenID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for minted notification")
	}

	select {
	case m := <-got:
		t.Errorf("expected a single notification, got extra %+v", m)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestToTokenID(t *testing.T) {
	if id, err := ToTokenID(big.NewInt(50)); err != nil || id != 50 {
		t.Errorf("expected 50, got %d (%v)", id, err)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	if _, err := ToTokenID(huge); err == nil {
		t.Error("expected out of range error")
	}
	if _, err := ToTokenID(nil); err == nil {
		t.Error("expected error for nil")
	}
}

func TestLoadABI(t *testing.T) {
	got, err := LoadABI(Config{})
	if err != nil || got != EpicNFTABI {
		t.Errorf("expected embedded abi, got err %v", err)
	}

	dir := t.TempDir()
	artifact := filepath.Join(dir, "MyEpicNFT.json")
	if err := os.WriteFile(artifact, []byte(`{"contractName":"MyEpicNFT","abi":[{"type":"function","name":"x","inputs":[],"outputs":[]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadABI(Config{ABIPath: artifact})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "[") {
		t.Errorf("expected abi array from artifact, got %s", got)
	}

	bare := filepath.Join(dir, "abi.json")
	if err := os.WriteFile(bare, []byte(EpicNFTABI), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadABI(Config{ABIPath: bare})
	if err != nil || got != EpicNFTABI {
		t.Errorf("expected bare abi file to load unchanged, got err %v", err)
	}
}

func TestConfigLinks(t *testing.T) {
	cfg := Config{
		Address:             testContract,
		MarketplaceAssetURL: "https://testnets.opensea.io/assets",
		ExplorerTxURL:       "https://rinkeby.etherscan.io/tx",
	}
	if got := cfg.TokenURL(7); got != "https://testnets.opensea.io/assets/"+testContract+"/7" {
		t.Errorf("unexpected token url %s", got)
	}
	if got := cfg.TxURL("0xabc"); got != "https://rinkeby.etherscan.io/tx/0xabc" {
		t.Errorf("unexpected tx url %s", got)
	}
}
