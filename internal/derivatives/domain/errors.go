package domain

import "errors"

// 数值层错误：单次调用致命，批量场景由调用方捕获后跳过
var (
	// ErrInvalidInput 定价输入非法 (S/K/T/Sigma 非正、低于内在价值的市场价等)
	ErrInvalidInput = errors.New("invalid pricing input")
	// ErrInvalidProbability 风险中性概率越界，说明 sigma/r/dt 组合不兼容
	ErrInvalidProbability = errors.New("risk-neutral probability out of [0,1]")
	// ErrInvalidTreeParameter 外部指定的 up 因子违反重组树条件 down = 1/up < up
	ErrInvalidTreeParameter = errors.New("recombining tree condition violated")
	// ErrVegaTooSmall 深度实值/虚值期权 vega 趋近于零，Newton-Raphson 迭代发散
	ErrVegaTooSmall = errors.New("vega too small to continue iteration")
)

// 数据可用性错误：对整次曲面构建致命，消息需包含可操作的补救建议
var (
	ErrNoOptionsData     = errors.New("no options data available")
	ErrNoMarketData      = errors.New("no market data available")
	ErrNoQuotesRemaining = errors.New("no quotes remaining after filtering")
	ErrNoConvergedIV     = errors.New("no converged implied volatility")
)
