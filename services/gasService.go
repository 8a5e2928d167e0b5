package services

import (
	"context"
	"log"
	"math/big"
	"sync"
	"time"

	"relaycore/models"

	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader 链 RPC 的窄接口，*ethclient.Client 直接满足
type ChainReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

// PriceOracle 价格源的窄接口：返回代币的稳定币计价
type PriceOracle interface {
	Price(ctx context.Context, token string) (*big.Rat, error)
}

// 各档位参数：小费倍数、预计确认时间、置信度。
// 快档小费最高、确认最快、置信度最高
var tierParams = []struct {
	name       string
	tipNum     int64 // 小费倍数的分子/分母
	tipDen     int64
	confirmSec int64
	confidence float64
}{
	{models.TierSlow, 1, 1, 60, 0.70},
	{models.TierStandard, 3, 2, 30, 0.90},
	{models.TierFast, 2, 1, 12, 0.99},
}

// 拥堵分界（wei）
var (
	congestionMedium = big.NewInt(20_000_000_000)  // 20 gwei
	congestionHigh   = big.NewInt(100_000_000_000) // 100 gwei
)

type chainInfo struct {
	name        string
	nativeToken string
}

// 支持的链
var chainRegistry = map[uint64]chainInfo{
	1:     {"Ethereum", "ETH"},
	10:    {"Optimism", "ETH"},
	137:   {"Polygon", "MATIC"},
	8453:  {"Base", "ETH"},
	42161: {"Arbitrum One", "ETH"},
}

// GasOracle 提供多档位费率报价，带短 TTL 缓存以限制对上游的查询量
type GasOracle struct {
	reader ChainReader
	prices PriceOracle
	clock  Clock
	ttl    time.Duration

	mu    sync.Mutex
	cache map[uint64]*models.GasEstimateResponse
}

// NewGasOracle 创建一个新的 GasOracle 实例，ttl 为报价缓存时长
func NewGasOracle(reader ChainReader, prices PriceOracle, clock Clock, ttl time.Duration) *GasOracle {
	return &GasOracle{
		reader: reader,
		prices: prices,
		clock:  clock,
		ttl:    ttl,
		cache:  make(map[uint64]*models.GasEstimateResponse),
	}
}

// GetGasEstimates 返回该链的三档费率报价。缓存未过期时直接返回缓存值，
// lastUpdated 始终反映报价的实际抓取时间
func (o *GasOracle) GetGasEstimates(ctx context.Context, chainID uint64) (*models.GasEstimateResponse, error) {
	info, ok := chainRegistry[chainID]
	if !ok {
		return nil, NewValidationError("unsupported chain %d", chainID)
	}

	o.mu.Lock()
	if cached, ok := o.cache[chainID]; ok {
		if o.clock.Now().Sub(cached.LastUpdated) < o.ttl {
			o.mu.Unlock()
			return cached, nil
		}
	}
	o.mu.Unlock()

	resp, err := o.fetchEstimates(ctx, chainID, info)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.cache[chainID] = resp
	o.mu.Unlock()

	return resp, nil
}

func (o *GasOracle) fetchEstimates(ctx context.Context, chainID uint64, info chainInfo) (*models.GasEstimateResponse, error) {
	header, err := o.reader.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, &UpstreamError{Op: "header fetch", Err: err}
	}
	tip, err := o.reader.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, &UpstreamError{Op: "gas tip fetch", Err: err}
	}

	// 未实行 EIP-1559 的链没有 baseFee，按 0 处理，报价退化为纯小费
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}

	tiers := make([]models.GasEstimateTier, 0, len(tierParams))
	for _, p := range tierParams {
		tierTip := new(big.Int).Mul(tip, big.NewInt(p.tipNum))
		tierTip.Div(tierTip, big.NewInt(p.tipDen))

		// maxFee 预留 2 倍当前 baseFee 的涨幅空间
		maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
		maxFee.Add(maxFee, tierTip)

		gasPrice := new(big.Int).Add(baseFee, tierTip)

		tiers = append(tiers, models.GasEstimateTier{
			Tier:                      p.name,
			MaxFeePerGas:              maxFee.String(),
			MaxPriorityFeePerGas:      tierTip.String(),
			GasPrice:                  gasPrice.String(),
			EstimatedConfirmationTime: p.confirmSec,
			Confidence:                p.confidence,
		})
	}

	// 价格仅用于展示，取不到时不阻塞报价
	var displayPrice float64
	if rate, err := o.prices.Price(ctx, info.nativeToken); err != nil {
		log.Printf("price lookup for %s failed: %v", info.nativeToken, err)
	} else {
		displayPrice, _ = rate.Float64()
	}

	return &models.GasEstimateResponse{
		ChainID:           chainID,
		ChainName:         info.name,
		NativeToken:       info.nativeToken,
		NativeTokenPrice:  displayPrice,
		BaseFee:           baseFee.String(),
		NetworkCongestion: congestionLevel(baseFee),
		Recommended:       models.TierStandard,
		Estimates:         tiers,
		LastUpdated:       o.clock.Now(),
	}, nil
}

func congestionLevel(baseFee *big.Int) string {
	switch {
	case baseFee.Cmp(congestionMedium) < 0:
		return "low"
	case baseFee.Cmp(congestionHigh) < 0:
		return "medium"
	default:
		return "high"
	}
}

// CalculateCost 纯计算，无 I/O：gas 单价乘以 gas 上限得到精确的 wei 成本，
// 再按代币价格换算，只有最终展示值做舍入
func CalculateCost(estimate models.GasEstimateTier, gasLimit uint64, nativeTokenPrice *big.Rat) (models.CostBreakdown, error) {
	gasPrice, ok := new(big.Int).SetString(estimate.GasPrice, 10)
	if !ok {
		return models.CostBreakdown{}, NewValidationError("invalid gas price %q", estimate.GasPrice)
	}

	weiCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	nativeCost := weiToNative(weiCost)
	stableCost := new(big.Rat).Mul(nativeCost, nativeTokenPrice)

	return models.CostBreakdown{
		GasLimit:        gasLimit,
		GasPrice:        estimate.GasPrice,
		WeiCost:         weiCost.String(),
		NativeTokenCost: ratString(nativeCost),
		StablecoinCost:  ratString(stableCost),
	}, nil
}

var weiPerNative = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// weiToNative 把 wei 精确转换为原生币单位
func weiToNative(wei *big.Int) *big.Rat {
	return new(big.Rat).SetFrac(new(big.Int).Set(wei), new(big.Int).Set(weiPerNative))
}

// ratString 展示层的定点格式化，18 位小数足以保留 wei 级精度
func ratString(r *big.Rat) string {
	return r.FloatString(18)
}
