package main

import (
	"log"
	"math/big"
	"strconv"
	"strings"
	"time"

	"relaycore/config"
	"relaycore/controllers"
	"relaycore/routes"
	"relaycore/services"
	"relaycore/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadEnv() // 加载环境变量

	r := gin.Default()

	// 连接以太坊客户端
	client, err := ethclient.Dial(config.GetEnvDefault("RPC_URL", "http://localhost:8545"))
	if err != nil {
		log.Fatalf("Failed to connect to the Ethereum client: %v", err)
	}

	// 显式构造各个单例，通过引用传给处理器，不使用隐藏的全局状态
	clock := services.SystemClock()
	keyManager := services.NewSessionKeyManager(clock)
	validator := services.NewPermissionValidator(clock)

	var relayClient services.RelayClient
	if endpoint := config.GetEnv("RELAYER_URL"); endpoint != "" {
		relayClient = services.NewHTTPRelayClient(endpoint)
	} else {
		log.Println("RELAYER_URL not set, relay submission disabled")
	}
	relay := services.NewMetaTransactionRelay(relayClient, clock)

	var prices services.PriceOracle
	if endpoint := config.GetEnv("PRICE_ORACLE_URL"); endpoint != "" {
		prices = services.NewHTTPPriceOracle(endpoint)
	} else {
		log.Println("PRICE_ORACLE_URL not set, using static token prices")
		prices = staticPricesFromEnv()
	}

	oracle := services.NewGasOracle(client, prices, clock, 10*time.Second)
	estimator := services.NewPaymasterEstimator(oracle, services.NewEthGasLimitEstimator(client), prices, paymasterConfigFromEnv())

	// 提交记录存储是可选的，数据库不可用时中继照常工作
	var store *storage.SubmissionStore
	if db, err := config.ConnectDB(); err != nil {
		log.Printf("Submission store disabled: %v", err)
	} else {
		store = storage.NewSubmissionStore(db)
		if err := store.Init(); err != nil {
			log.Fatalf("Failed to init submission store: %v", err)
		}
	}

	// 创建各个 Controller 实例
	sessionKeyController := controllers.NewSessionKeyController(keyManager, validator)
	relayController := controllers.NewRelayController(relay, store, clock, config.GetEnv("VERIFYING_CONTRACT"))
	gasController := controllers.NewGasController(oracle, prices)
	paymasterController := controllers.NewPaymasterController(estimator)

	// 初始化路由
	routes.SetupRouter(r)
	routes.SetupSessionKeyRouter(r, sessionKeyController)
	routes.SetupRelayRouter(r, relayController)
	routes.SetupGasRouter(r, gasController)
	routes.SetupPaymasterRouter(r, paymasterController)

	// 运行服务器
	if err := r.Run(":" + config.GetEnvDefault("PORT", "8080")); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// staticPricesFromEnv 解析 TOKEN_PRICES，格式 "ETH=3000,MATIC=0.5"
func staticPricesFromEnv() services.FixedPriceOracle {
	prices := services.FixedPriceOracle{}
	for _, pair := range strings.Split(config.GetEnv("TOKEN_PRICES"), ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		rate, ok := new(big.Rat).SetString(parts[1])
		if !ok {
			log.Printf("Ignoring invalid token price %q", pair)
			continue
		}
		prices[strings.ToUpper(parts[0])] = rate
	}
	return prices
}

// paymasterConfigFromEnv 解析代付方配置。
// PAYMASTER_ADDRESSES 格式 "1=0x...,137=0x..."
func paymasterConfigFromEnv() services.PaymasterConfig {
	cfg := services.PaymasterConfig{Paymasters: make(map[uint64]common.Address)}

	for _, pair := range strings.Split(config.GetEnv("PAYMASTER_ADDRESSES"), ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		chainID, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil || !common.IsHexAddress(parts[1]) {
			log.Printf("Ignoring invalid paymaster entry %q", pair)
			continue
		}
		cfg.Paymasters[chainID] = common.HexToAddress(parts[1])
	}

	if flat := config.GetEnv("PAYMASTER_FEE_FLAT"); flat != "" {
		if rate, ok := new(big.Rat).SetString(flat); ok {
			cfg.FlatFee = rate
		} else {
			log.Printf("Ignoring invalid PAYMASTER_FEE_FLAT %q", flat)
		}
	}
	if bps := config.GetEnv("PAYMASTER_FEE_BPS"); bps != "" {
		if v, err := strconv.ParseInt(bps, 10, 64); err == nil && v >= 0 {
			cfg.FeeBps = v
		} else {
			log.Printf("Ignoring invalid PAYMASTER_FEE_BPS %q", bps)
		}
	}
	return cfg
}
