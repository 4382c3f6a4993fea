package domain

import (
	"errors"
	"math"
	"testing"
)

func TestPriceBinomialConvergesToBlackScholes(t *testing.T) {
	c := benchmarkContract(OptionTypeCall)
	bs, err := PriceBlackScholes(c)
	if err != nil {
		t.Fatal(err)
	}

	result, err := PriceBinomial(c, 500)
	if err != nil {
		t.Fatalf("binomial pricing failed: %v", err)
	}
	if diff := math.Abs(result.Price - bs.Price); diff >= 0.01 {
		t.Errorf("binomial(500) = %v, |diff to BS| = %v, want < 0.01", result.Price, diff)
	}
}

func TestPriceBinomialTreeParameters(t *testing.T) {
	c := benchmarkContract(OptionTypeCall)
	result, err := PriceBinomial(c, 100)
	if err != nil {
		t.Fatal(err)
	}

	dt := c.T / 100
	if !almostEqual(result.Up, math.Exp(c.Sigma*math.Sqrt(dt)), 1e-12) {
		t.Errorf("up = %v, want exp(sigma*sqrt(dt))", result.Up)
	}
	if !almostEqual(result.Down, 1/result.Up, 1e-12) {
		t.Errorf("down = %v, want 1/up", result.Down)
	}
	if result.PUp <= 0 || result.PUp >= 1 {
		t.Errorf("p = %v, want in (0, 1)", result.PUp)
	}
}

func TestPriceBinomialAmericanPutPremium(t *testing.T) {
	eu := benchmarkContract(OptionTypePut)
	am := eu
	am.Exercise = ExerciseAmerican

	euResult, err := PriceBinomial(eu, 200)
	if err != nil {
		t.Fatal(err)
	}
	amResult, err := PriceBinomial(am, 200)
	if err != nil {
		t.Fatal(err)
	}

	// 美式看跌提前行权权利有正价值
	if amResult.Price <= euResult.Price {
		t.Errorf("american put %v <= european put %v", amResult.Price, euResult.Price)
	}
	if premium := amResult.Price - euResult.Price; premium < 0.3 {
		t.Errorf("early exercise premium = %v, want >= 0.3", premium)
	}
}

func TestPriceBinomialAmericanCallEqualsEuropean(t *testing.T) {
	// 无红利标的的美式看涨提前行权从不最优
	eu := benchmarkContract(OptionTypeCall)
	am := eu
	am.Exercise = ExerciseAmerican

	euResult, err := PriceBinomial(eu, 200)
	if err != nil {
		t.Fatal(err)
	}
	amResult, err := PriceBinomial(am, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(amResult.Price, euResult.Price, 1e-8) {
		t.Errorf("american call %v != european call %v", amResult.Price, euResult.Price)
	}
}

func TestPriceBinomialInvalidProbability(t *testing.T) {
	// 极端参数使 exp(r*dt) > u，风险中性概率越界
	c := OptionContract{
		S: 100, K: 100, T: 1, R: 0.5, Sigma: 0.01,
		Type: OptionTypeCall, Exercise: ExerciseEuropean,
	}
	_, err := PriceBinomial(c, 1)
	if !errors.Is(err, ErrInvalidProbability) {
		t.Errorf("err = %v, want ErrInvalidProbability", err)
	}
}

func TestPriceBinomialInvalidSteps(t *testing.T) {
	_, err := PriceBinomial(benchmarkContract(OptionTypeCall), 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestPriceTrinomialConvergesToBlackScholes(t *testing.T) {
	c := benchmarkContract(OptionTypeCall)
	bs, err := PriceBlackScholes(c)
	if err != nil {
		t.Fatal(err)
	}

	result, err := PriceTrinomial(c, 500)
	if err != nil {
		t.Fatalf("trinomial pricing failed: %v", err)
	}
	if diff := math.Abs(result.Price - bs.Price); diff >= 0.01 {
		t.Errorf("trinomial(500) = %v, |diff to BS| = %v, want < 0.01", result.Price, diff)
	}
}

func TestPriceTrinomialMoreAccurateThanBinomial(t *testing.T) {
	// 同步数下三叉树误差应不大于二叉树
	c := benchmarkContract(OptionTypeCall)
	bs, err := PriceBlackScholes(c)
	if err != nil {
		t.Fatal(err)
	}

	for _, steps := range []int{50, 100} {
		bin, err := PriceBinomial(c, steps)
		if err != nil {
			t.Fatal(err)
		}
		tri, err := PriceTrinomial(c, steps)
		if err != nil {
			t.Fatal(err)
		}
		binErr := math.Abs(bin.Price - bs.Price)
		triErr := math.Abs(tri.Price - bs.Price)
		if triErr > binErr {
			t.Errorf("steps=%d: trinomial error %v > binomial error %v", steps, triErr, binErr)
		}
	}
}

func TestPriceTrinomialProbabilitiesSumToOne(t *testing.T) {
	result, err := PriceTrinomial(benchmarkContract(OptionTypePut), 100)
	if err != nil {
		t.Fatal(err)
	}
	sum := result.PUp + result.PMid + result.PDown
	if !almostEqual(sum, 1, 1e-12) {
		t.Errorf("pu+pm+pd = %v, want 1", sum)
	}
	for name, p := range map[string]float64{"pu": result.PUp, "pm": result.PMid, "pd": result.PDown} {
		if p < 0 || p > 1 {
			t.Errorf("%s = %v, want in [0, 1]", name, p)
		}
	}
}

func TestPriceTrinomialWithUpInvalidParameter(t *testing.T) {
	// up <= 1 时 down = 1/up >= up，树退化
	_, err := PriceTrinomialWithUp(benchmarkContract(OptionTypeCall), 100, 0.5)
	if !errors.Is(err, ErrInvalidTreeParameter) {
		t.Errorf("err = %v, want ErrInvalidTreeParameter", err)
	}
}

func TestPriceTrinomialInvalidProbability(t *testing.T) {
	c := OptionContract{
		S: 100, K: 100, T: 1, R: 0.5, Sigma: 0.01,
		Type: OptionTypeCall, Exercise: ExerciseEuropean,
	}
	_, err := PriceTrinomial(c, 1)
	if !errors.Is(err, ErrInvalidProbability) {
		t.Errorf("err = %v, want ErrInvalidProbability", err)
	}
}

func TestAnalyzeConvergence(t *testing.T) {
	c := benchmarkContract(OptionTypeCall)
	points := AnalyzeConvergence(c, []int{10, 50, 100, 200})
	if len(points) != 4 {
		t.Fatalf("got %d points, want 4", len(points))
	}
	if points[0].PriceChange != 0 {
		t.Errorf("first point price change = %v, want 0", points[0].PriceChange)
	}
	// 相邻价差随步数递减
	for i := 2; i < len(points); i++ {
		if points[i].PriceChange > points[i-1].PriceChange {
			t.Errorf("price change not decreasing: steps=%d change=%v > prev %v",
				points[i].Steps, points[i].PriceChange, points[i-1].PriceChange)
		}
	}
}

func TestCompareModels(t *testing.T) {
	// 美式输入也按欧式口径对比，闭式解才有意义
	c := benchmarkContract(OptionTypePut)
	c.Exercise = ExerciseAmerican

	cmp, err := CompareModels(c, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(cmp.BlackScholes, 5.573526022256971, 1e-9) {
		t.Errorf("bs price = %v, want european put value", cmp.BlackScholes)
	}
	if cmp.BinomialVsBS >= 0.05 || cmp.TrinomialVsBS >= 0.05 {
		t.Errorf("tree prices too far from BS: binomial diff %v, trinomial diff %v",
			cmp.BinomialVsBS, cmp.TrinomialVsBS)
	}
	if cmp.TrinomialVsBS > cmp.BinomialVsBS {
		t.Errorf("trinomial diff %v > binomial diff %v at steps=%d",
			cmp.TrinomialVsBS, cmp.BinomialVsBS, cmp.Steps)
	}
}
