package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"relaycore/models"

	"github.com/ethereum/go-ethereum/common"
)

type fakeLimitEstimator struct {
	mu    sync.Mutex
	limit uint64
	err   error
	calls int
}

func (e *fakeLimitEstimator) EstimateGasLimit(_ context.Context, _ models.SignedMetaTransaction) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return 0, e.err
	}
	return e.limit, nil
}

func (e *fakeLimitEstimator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// 推荐档（standard）单价 = baseFee + 1.5×tip = 7 + 3 = 10 gwei
func testEstimator(limits GasLimitEstimator, cfg PaymasterConfig) *PaymasterEstimator {
	clock := newFakeClock()
	reader := &fakeChainReader{baseFee: gwei(7), tip: gwei(2)}
	prices := FixedPriceOracle{"ETH": big.NewRat(3000, 1)}
	oracle := NewGasOracle(reader, prices, clock, 10*time.Second)
	return NewPaymasterEstimator(oracle, limits, prices, cfg)
}

func quoteTx() models.SignedMetaTransaction {
	return models.SignedMetaTransaction{
		From:     "0x2222222222222222222222222222222222222222",
		To:       "0x00000000000000000000000000000000000000Ab",
		Value:    "0",
		ChainID:  1,
		Deadline: 2_000_000_000,
	}
}

// 21000 gas × 10 gwei = 2.1e14 wei = 0.00021 ETH；按 3000 换算 0.63，
// 加 0.30 固定代付费后总价 0.93
func TestEstimateGasQuote(t *testing.T) {
	limits := &fakeLimitEstimator{limit: 21_000}
	est := testEstimator(limits, PaymasterConfig{
		Paymasters: map[uint64]common.Address{1: common.HexToAddress("0x9999999999999999999999999999999999999999")},
		FlatFee:    big.NewRat(3, 10),
	})

	quote, err := est.EstimateGas(context.Background(), quoteTx(), 1)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}

	if quote.GasLimit != 21_000 {
		t.Errorf("gasLimit = %d", quote.GasLimit)
	}
	if quote.Tier != models.TierStandard {
		t.Errorf("tier = %q, want standard", quote.Tier)
	}
	if quote.NativeTokenCost != "210000000000000" {
		t.Errorf("nativeTokenCost = %s, want 210000000000000 wei", quote.NativeTokenCost)
	}
	if quote.StablecoinCost != "0.630000000000000000" {
		t.Errorf("stablecoinCost = %s, want 0.63", quote.StablecoinCost)
	}
	if quote.PaymasterFee != "0.300000000000000000" {
		t.Errorf("paymasterFee = %s, want 0.30", quote.PaymasterFee)
	}
	if quote.TotalCost != "0.930000000000000000" {
		t.Errorf("totalCost = %s, want 0.93", quote.TotalCost)
	}
	if quote.ExchangeRate != "3000.000000000000000000" {
		t.Errorf("exchangeRate = %s", quote.ExchangeRate)
	}
}

func TestEstimateGasProportionalFee(t *testing.T) {
	limits := &fakeLimitEstimator{limit: 21_000}
	// 100 基点 = 成本的 1%
	est := testEstimator(limits, PaymasterConfig{FeeBps: 100})

	quote, err := est.EstimateGas(context.Background(), quoteTx(), 1)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if quote.PaymasterFee != "0.006300000000000000" {
		t.Errorf("paymasterFee = %s, want 0.0063", quote.PaymasterFee)
	}
	if quote.TotalCost != "0.636300000000000000" {
		t.Errorf("totalCost = %s, want 0.6363", quote.TotalCost)
	}
}

// 极小的 gas 上限也不允许非零成本在内部被归零
func TestEstimateGasTinyLimitNoUnderflow(t *testing.T) {
	limits := &fakeLimitEstimator{limit: 1}
	est := testEstimator(limits, PaymasterConfig{})

	quote, err := est.EstimateGas(context.Background(), quoteTx(), 1)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if quote.NativeTokenCost != "10000000000" {
		t.Errorf("nativeTokenCost = %s, want 10000000000 wei", quote.NativeTokenCost)
	}
	// 1 gas × 10 gwei × 3000 / 1e18 = 0.00003
	if quote.StablecoinCost != "0.000030000000000000" {
		t.Errorf("stablecoinCost = %s", quote.StablecoinCost)
	}
}

func TestEstimateGasUpstreamFailure(t *testing.T) {
	limits := &fakeLimitEstimator{err: errors.New("node down")}
	est := testEstimator(limits, PaymasterConfig{})

	_, err := est.EstimateGas(context.Background(), quoteTx(), 1)
	if _, ok := err.(*UpstreamError); !ok {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestEstimateGasUnsupportedChain(t *testing.T) {
	limits := &fakeLimitEstimator{limit: 21_000}
	est := testEstimator(limits, PaymasterConfig{})

	_, err := est.EstimateGas(context.Background(), quoteTx(), 424242)
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if limits.callCount() != 0 {
		t.Error("no simulation should run for an unsupported chain")
	}
}

// 能力检查不需要任何 gas 估算
func TestIsPaymasterAvailable(t *testing.T) {
	limits := &fakeLimitEstimator{limit: 21_000}
	est := testEstimator(limits, PaymasterConfig{
		Paymasters: map[uint64]common.Address{137: common.HexToAddress("0x9999999999999999999999999999999999999999")},
	})

	if !est.IsPaymasterAvailable(137) {
		t.Error("chain 137 should have a paymaster")
	}
	if est.IsPaymasterAvailable(1) {
		t.Error("chain 1 should not have a paymaster")
	}
	if limits.callCount() != 0 {
		t.Errorf("availability check triggered %d gas estimates", limits.callCount())
	}
}
