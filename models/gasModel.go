package models

import "time"

// 费率档位
const (
	TierSlow     = "slow"
	TierStandard = "standard"
	TierFast     = "fast"
)

// GasEstimateTier 单个费率档位的报价
type GasEstimateTier struct {
	Tier                      string  `json:"tier"`
	MaxFeePerGas              string  `json:"maxFeePerGas"`         // wei
	MaxPriorityFeePerGas      string  `json:"maxPriorityFeePerGas"` // wei
	GasPrice                  string  `json:"gasPrice"`             // wei，基础费加小费
	EstimatedConfirmationTime int64   `json:"estimatedConfirmationTime"` // 秒
	Confidence                float64 `json:"confidence"`                // 0-1
}

// GasEstimateResponse 一次完整的多档位费率报价
type GasEstimateResponse struct {
	ChainID           uint64            `json:"chainId"`
	ChainName         string            `json:"chainName"`
	NativeToken       string            `json:"nativeToken"`
	NativeTokenPrice  float64           `json:"nativeTokenPrice"` // 稳定币计价，仅展示用
	BaseFee           string            `json:"baseFee"`          // wei
	NetworkCongestion string            `json:"networkCongestion"`
	Recommended       string            `json:"recommended"`
	Estimates         []GasEstimateTier `json:"estimates"`
	LastUpdated       time.Time         `json:"lastUpdated"`
}

// CostBreakdown 纯计算的费用拆解，gas 乘法不做中间浮点舍入
type CostBreakdown struct {
	GasLimit        uint64 `json:"gasLimit"`
	GasPrice        string `json:"gasPrice"`        // wei
	WeiCost         string `json:"weiCost"`         // gasLimit × gasPrice，精确整数
	NativeTokenCost string `json:"nativeTokenCost"` // 原生币单位，十进制字符串
	StablecoinCost  string `json:"stablecoinCost"`  // 稳定币单位，十进制字符串
}

// PaymasterQuote 代付方报价：原生币成本换算成稳定币再加上代付费
type PaymasterQuote struct {
	ChainID         uint64 `json:"chainId"`
	GasLimit        uint64 `json:"gasLimit"`
	Tier            string `json:"tier"`
	MaxFeePerGas    string `json:"maxFeePerGas"`    // wei
	GasPrice        string `json:"gasPrice"`        // wei
	NativeTokenCost string `json:"nativeTokenCost"` // wei，精确整数
	ExchangeRate    string `json:"exchangeRate"`    // 原生币 → 稳定币
	StablecoinCost  string `json:"stablecoinCost"`  // 稳定币单位
	PaymasterFee    string `json:"paymasterFee"`    // 稳定币单位
	TotalCost       string `json:"totalCost"`       // stablecoinCost + paymasterFee
}
