package services

import (
	"context"
	"math/big"

	"relaycore/models"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
)

// GasLimitEstimator 模拟执行得到 gas 上限的窄接口
type GasLimitEstimator interface {
	EstimateGasLimit(ctx context.Context, tx models.SignedMetaTransaction) (uint64, error)
}

// ethGasLimitEstimator 通过节点的 eth_estimateGas 模拟获得 gas 上限
type ethGasLimitEstimator struct {
	client *ethclient.Client
}

// NewEthGasLimitEstimator 用以太坊客户端创建 gas 上限估算器
func NewEthGasLimitEstimator(client *ethclient.Client) GasLimitEstimator {
	return &ethGasLimitEstimator{client: client}
}

func (e *ethGasLimitEstimator) EstimateGasLimit(ctx context.Context, tx models.SignedMetaTransaction) (uint64, error) {
	value, ok := parseWei(txValue(tx))
	if !ok {
		return 0, NewValidationError("transaction value is not a valid wei amount")
	}
	var data []byte
	if tx.Data != "" {
		decoded, err := hexutil.Decode(tx.Data)
		if err != nil {
			return 0, NewValidationError("invalid call data: %v", err)
		}
		data = decoded
	}

	to := common.HexToAddress(tx.To)
	msg := ethereum.CallMsg{
		From:  common.HexToAddress(tx.From),
		To:    &to,
		Value: value,
		Data:  data,
	}
	return e.client.EstimateGas(ctx, msg)
}

// PaymasterConfig 代付方配置：每条链的代付合约地址和费用参数
type PaymasterConfig struct {
	Paymasters map[uint64]common.Address // 链 ID → 已注资的代付合约
	FlatFee    *big.Rat                  // 固定费（稳定币单位）
	FeeBps     int64                     // 按成本收取的比例费（基点）
}

// PaymasterEstimator 把 gas 报价换算成原生币和稳定币两套单位的总成本
type PaymasterEstimator struct {
	oracle *GasOracle
	limits GasLimitEstimator
	prices PriceOracle
	cfg    PaymasterConfig
}

// NewPaymasterEstimator 创建一个新的 PaymasterEstimator 实例
func NewPaymasterEstimator(oracle *GasOracle, limits GasLimitEstimator, prices PriceOracle, cfg PaymasterConfig) *PaymasterEstimator {
	return &PaymasterEstimator{oracle: oracle, limits: limits, prices: prices, cfg: cfg}
}

// IsPaymasterAvailable 该链是否配置了已注资的代付合约。
// 这只是能力检查，不需要做任何 gas 估算
func (p *PaymasterEstimator) IsPaymasterAvailable(chainID uint64) bool {
	_, ok := p.cfg.Paymasters[chainID]
	return ok
}

// EstimateGas 生成完整的代付报价：模拟得到 gas 上限，取当前推荐档位报价，
// 精确计算 wei 成本，再按汇率换算成稳定币并加上代付费。
// 中间计算全程用精确有理数，只有最终展示字段做舍入
func (p *PaymasterEstimator) EstimateGas(ctx context.Context, tx models.SignedMetaTransaction, chainID uint64) (*models.PaymasterQuote, error) {
	info, ok := chainRegistry[chainID]
	if !ok {
		return nil, NewValidationError("unsupported chain %d", chainID)
	}

	gasLimit, err := p.limits.EstimateGasLimit(ctx, tx)
	if err != nil {
		if _, isValidation := err.(*ValidationError); isValidation {
			return nil, err
		}
		return nil, &UpstreamError{Op: "gas limit estimate", Err: err}
	}

	estimates, err := p.oracle.GetGasEstimates(ctx, chainID)
	if err != nil {
		return nil, err
	}
	tier, err := pickTier(estimates, estimates.Recommended)
	if err != nil {
		return nil, err
	}

	rate, err := p.prices.Price(ctx, info.nativeToken)
	if err != nil {
		return nil, &UpstreamError{Op: "price lookup", Err: err}
	}

	return p.buildQuote(chainID, gasLimit, tier, rate)
}

// buildQuote 报价的纯计算部分
func (p *PaymasterEstimator) buildQuote(chainID uint64, gasLimit uint64, tier models.GasEstimateTier, rate *big.Rat) (*models.PaymasterQuote, error) {
	gasPrice, ok := new(big.Int).SetString(tier.GasPrice, 10)
	if !ok {
		return nil, NewValidationError("invalid gas price %q", tier.GasPrice)
	}

	// wei 成本是精确整数乘法，绝不提前进入浮点
	weiCost := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	stableCost := new(big.Rat).Mul(weiToNative(weiCost), rate)

	fee := new(big.Rat)
	if p.cfg.FlatFee != nil {
		fee.Add(fee, p.cfg.FlatFee)
	}
	if p.cfg.FeeBps > 0 {
		proportional := new(big.Rat).Mul(stableCost, big.NewRat(p.cfg.FeeBps, 10_000))
		fee.Add(fee, proportional)
	}

	total := new(big.Rat).Add(stableCost, fee)

	return &models.PaymasterQuote{
		ChainID:         chainID,
		GasLimit:        gasLimit,
		Tier:            tier.Tier,
		MaxFeePerGas:    tier.MaxFeePerGas,
		GasPrice:        tier.GasPrice,
		NativeTokenCost: weiCost.String(),
		ExchangeRate:    ratString(rate),
		StablecoinCost:  ratString(stableCost),
		PaymasterFee:    ratString(fee),
		TotalCost:       ratString(total),
	}, nil
}

func pickTier(resp *models.GasEstimateResponse, name string) (models.GasEstimateTier, error) {
	for _, tier := range resp.Estimates {
		if tier.Tier == name {
			return tier, nil
		}
	}
	return models.GasEstimateTier{}, NewValidationError("unknown gas tier %q", name)
}
