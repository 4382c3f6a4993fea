package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/domain"
)

// 支持的定价模型
const (
	ModelBlackScholes = "black_scholes"
	ModelBinomial     = "binomial"
	ModelTrinomial    = "trinomial"

	defaultTreeSteps = 100
)

// PriceOptionCommand 期权定价命令
type PriceOptionCommand struct {
	Spot         float64 `json:"spot_price"`
	Strike       float64 `json:"strike_price"`
	TimeToExpiry float64 `json:"time_to_expiry"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	Volatility   float64 `json:"volatility"`
	OptionType   string  `json:"option_type"`
	ExerciseType string  `json:"exercise_type"`
	Model        string  `json:"model"`
	Steps        int     `json:"steps"`
}

// SolveIVCommand 隐含波动率求解命令
type SolveIVCommand struct {
	MarketPrice  float64 `json:"market_price"`
	Spot         float64 `json:"spot_price"`
	Strike       float64 `json:"strike_price"`
	TimeToExpiry float64 `json:"time_to_expiry"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	OptionType   string  `json:"option_type"`
	WithHistory  bool    `json:"with_history"`
}

// PricingService 定价应用服务
// 模型选择与事件发布在此层完成，数值计算全部委托领域层
type PricingService struct {
	solver    *domain.IVSolver
	publisher domain.EventPublisher
}

// NewPricingService 创建定价应用服务
func NewPricingService(publisher domain.EventPublisher) *PricingService {
	return &PricingService{
		solver:    domain.NewIVSolver(),
		publisher: publisher,
	}
}

func (c PriceOptionCommand) contract() domain.OptionContract {
	exercise := domain.ExerciseEuropean
	if strings.EqualFold(c.ExerciseType, string(domain.ExerciseAmerican)) {
		exercise = domain.ExerciseAmerican
	}
	return domain.OptionContract{
		S:        c.Spot,
		K:        c.Strike,
		T:        c.TimeToExpiry,
		R:        c.RiskFreeRate,
		Sigma:    c.Volatility,
		Type:     domain.OptionType(strings.ToUpper(c.OptionType)),
		Exercise: exercise,
	}
}

// PriceOption 按指定模型定价
// 美式合约必须走树模型，闭式解只覆盖欧式
func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*PriceDTO, error) {
	contract := cmd.contract()
	model := cmd.Model
	if model == "" {
		model = ModelBlackScholes
	}
	steps := cmd.Steps
	if steps <= 0 {
		steps = defaultTreeSteps
	}

	dto := &PriceDTO{
		Model:        model,
		Exercise:     string(contract.Exercise),
		CalculatedAt: time.Now(),
	}

	switch model {
	case ModelBlackScholes:
		if contract.Exercise == domain.ExerciseAmerican {
			return nil, fmt.Errorf("%w: american exercise requires a tree model (binomial or trinomial)", domain.ErrInvalidInput)
		}
		result, err := domain.PriceBlackScholes(contract)
		if err != nil {
			return nil, err
		}
		dto.Price = decimal.NewFromFloat(result.Price)
		dto.Delta = result.Delta
		dto.Gamma = result.Gamma
		dto.Theta = result.Theta
		dto.Vega = result.Vega
		dto.Rho = result.Rho
		dto.D1 = result.D1
		dto.D2 = result.D2
	case ModelBinomial:
		result, err := domain.PriceBinomial(contract, steps)
		if err != nil {
			return nil, err
		}
		dto.Price = decimal.NewFromFloat(result.Price)
		dto.Steps = result.Steps
	case ModelTrinomial:
		result, err := domain.PriceTrinomial(contract, steps)
		if err != nil {
			return nil, err
		}
		dto.Price = decimal.NewFromFloat(result.Price)
		dto.Steps = result.Steps
	default:
		return nil, fmt.Errorf("%w: unknown pricing model %q", domain.ErrInvalidInput, model)
	}

	s.publishPriced(ctx, contract, model, dto)
	return dto, nil
}

// CompareModels 三模型同参对照
func (s *PricingService) CompareModels(ctx context.Context, cmd PriceOptionCommand) (*domain.ModelComparison, error) {
	steps := cmd.Steps
	if steps <= 0 {
		steps = defaultTreeSteps
	}
	return domain.CompareModels(cmd.contract(), steps)
}

// AnalyzeConvergence 树模型收敛性诊断
func (s *PricingService) AnalyzeConvergence(ctx context.Context, cmd PriceOptionCommand, stepCounts []int) ([]domain.ConvergencePoint, error) {
	if len(stepCounts) == 0 {
		stepCounts = []int{10, 50, 100, 200, 500}
	}
	contract := cmd.contract()
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	return domain.AnalyzeConvergence(contract, stepCounts), nil
}

// SolveImpliedVol 求解单一报价的隐含波动率并附带重定价自检
func (s *PricingService) SolveImpliedVol(ctx context.Context, cmd SolveIVCommand) (*IVDTO, error) {
	contract := domain.OptionContract{
		S:        cmd.Spot,
		K:        cmd.Strike,
		T:        cmd.TimeToExpiry,
		R:        cmd.RiskFreeRate,
		Type:     domain.OptionType(strings.ToUpper(cmd.OptionType)),
		Exercise: domain.ExerciseEuropean,
	}

	result, err := s.solver.Solve(cmd.MarketPrice, contract)
	if err != nil {
		return nil, err
	}

	dto := &IVDTO{
		ImpliedVolatility: result.ImpliedVolatility,
		Converged:         result.Converged,
		NumIterations:     result.NumIterations,
		FinalDifference:   result.FinalDifference,
	}
	if cmd.WithHistory {
		dto.Iterations = result.Iterations
	}
	if result.Converged {
		dto.Validation = s.solver.Validate(result.ImpliedVolatility, cmd.MarketPrice, contract)
	}
	return dto, nil
}

// publishPriced 事件发布失败只记录，不影响定价结果返回
func (s *PricingService) publishPriced(ctx context.Context, contract domain.OptionContract, model string, dto *PriceDTO) {
	if s.publisher == nil {
		return
	}
	event := domain.OptionPricedEvent{
		OptionType:   contract.Type,
		Strike:       contract.K,
		Maturity:     contract.T,
		Price:        dto.Price.InexactFloat64(),
		Model:        model,
		Volatility:   contract.Sigma,
		RiskFreeRate: contract.R,
		OccurredOn:   dto.CalculatedAt,
	}
	if err := s.publisher.PublishOptionPriced(ctx, event); err != nil {
		logging.Warn(ctx, "failed to publish option priced event", "error", err)
	}
}
